package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/recordsim/internal/metadata"
)

// Result holds the schemas compiled from a CUE instance.
type Result struct {
	Entities   []metadata.EntityMetadata
	OptionSets []metadata.OptionSet
	FileCount  int
}

// Apply registers every option set and entity into repo.
func (r *Result) Apply(repo *metadata.Repository) error {
	for _, set := range r.OptionSets {
		if err := repo.RegisterOptionSet(set); err != nil {
			return err
		}
	}
	for _, e := range r.Entities {
		if err := repo.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir loads every .cue file in dir as one instance and compiles it.
// All compile errors are collected.
func LoadDir(dir string) (*Result, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("schema directory %s: %w", dir, err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}
	value := ctx.BuildInstance(instances[0])
	result, errs := Compile(value)
	if result != nil {
		result.FileCount = len(files)
	}
	return result, errs
}

// CompileString compiles schema source held in memory. filename is used in
// error positions.
func CompileString(src, filename string) (*Result, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile extracts entities and option sets from a built CUE value.
func Compile(value cue.Value) (*Result, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	result := &Result{}
	var errs []error

	if setsVal := value.LookupPath(cue.ParsePath("optionset")); setsVal.Exists() {
		iter, err := setsVal.Fields()
		if err != nil {
			return result, []error{formatCUEError(err)}
		}
		for iter.Next() {
			set, err := CompileOptionSet(iter.Value())
			if err != nil {
				errs = append(errs, fmt.Errorf("optionset.%s: %w", iter.Label(), err))
				continue
			}
			result.OptionSets = append(result.OptionSets, *set)
		}
	}

	if entVal := value.LookupPath(cue.ParsePath("entity")); entVal.Exists() {
		iter, err := entVal.Fields()
		if err != nil {
			return result, append(errs, formatCUEError(err))
		}
		for iter.Next() {
			e, err := CompileEntity(iter.Value())
			if err != nil {
				errs = append(errs, fmt.Errorf("entity.%s: %w", iter.Label(), err))
				continue
			}
			result.Entities = append(result.Entities, *e)
		}
	}

	if len(result.Entities) == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("no entities found"))
	}
	return result, errs
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
