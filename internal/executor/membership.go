package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
)

// MembershipExecutor adds or removes members of a container record by
// maintaining intersect records. The container and every member must
// exist; otherwise NotFound names the first missing id and nothing is
// changed.
type MembershipExecutor struct {
	Message string

	Container      string
	ContainerParam string

	// MembersParam holds a list of ids; MemberParam a single id. Exactly
	// one is set.
	MembersParam string
	MemberParam  string

	// MemberEntities returns the logical names a member id may belong to,
	// given the container record. The first one holding the id wins.
	MemberEntities func(container *ir.Record) []string

	Intersect     string
	ContainerAttr string
	MemberAttr    string

	Remove bool
}

// CanExecute matches the configured message name.
func (m MembershipExecutor) CanExecute(req *message.Request) bool {
	return req.Name == m.Message
}

// Execute validates the ids and updates the intersect records.
func (m MembershipExecutor) Execute(_ context.Context, req *message.Request, env *Env) (*message.Response, error) {
	containerID, err := req.ID(m.ContainerParam)
	if err != nil {
		return nil, err
	}
	container, err := env.Store.Retrieve(ir.NewReference(m.Container, containerID), nil)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if m.MembersParam != "" {
		if ids, err = req.IDs(m.MembersParam); err != nil {
			return nil, err
		}
	} else {
		id, err := req.ID(m.MemberParam)
		if err != nil {
			return nil, err
		}
		ids = []uuid.UUID{id}
	}

	candidates := m.MemberEntities(container)
	members := make([]ir.Reference, 0, len(ids))
	for _, id := range ids {
		ref, ok := m.resolve(env, candidates, id)
		if !ok {
			entity := "member"
			if len(candidates) == 1 {
				entity = candidates[0]
			}
			return nil, fault.NewNotFound(entity, id.String())
		}
		members = append(members, ref)
	}

	containerRef := ir.NewReference(m.Container, containerID)
	changed := 0
	for _, member := range members {
		existing := m.find(env, containerID, member.ID)
		switch {
		case m.Remove && existing != nil:
			if err := env.Store.Delete(existing.Reference()); err != nil {
				return nil, err
			}
			changed++
		case !m.Remove && existing == nil:
			link := ir.NewRecord(m.Intersect, uuid.Nil).
				Set(m.ContainerAttr, containerRef).
				Set(m.MemberAttr, member)
			if _, err := env.Create(link); err != nil {
				return nil, err
			}
			changed++
		}
	}
	env.logger().Debug("membership changed",
		"message", m.Message,
		"container", containerID,
		"members", len(members),
		"changed", changed)
	return message.NewResponse(req.Name), nil
}

func (m MembershipExecutor) resolve(env *Env, candidates []string, id uuid.UUID) (ir.Reference, bool) {
	for _, entity := range candidates {
		ref := ir.NewReference(entity, id)
		if env.Store.Exists(ref) {
			return ref, true
		}
	}
	return ir.Reference{}, false
}

func (m MembershipExecutor) find(env *Env, containerID, memberID uuid.UUID) *ir.Record {
	for _, rec := range env.Store.Enumerate(m.Intersect) {
		if ir.Equal(rec.Value(m.ContainerAttr), ir.GUID(containerID)) &&
			ir.Equal(rec.Value(m.MemberAttr), ir.GUID(memberID)) {
			return rec
		}
	}
	return nil
}

func teamMembers(*ir.Record) []string {
	return []string{"systemuser"}
}

// listMemberTypes maps list.createdfromcode to the member entity.
var listMemberTypes = map[int]string{
	1: "account",
	2: "contact",
	4: "lead",
}

// listMembers returns the member entity declared by the list, or every
// marketable entity when the list does not declare one.
func listMembers(list *ir.Record) []string {
	if code, ok := ir.Normalize(list.Value("createdfromcode")).(ir.Int); ok {
		if entity, ok := listMemberTypes[int(code)]; ok {
			return []string{entity}
		}
	}
	return []string{"account", "contact", "lead"}
}

func teamMembership(name string, remove bool) MembershipExecutor {
	return MembershipExecutor{
		Message:        name,
		Container:      "team",
		ContainerParam: message.ParamTeamID,
		MembersParam:   message.ParamMemberIDs,
		MemberEntities: teamMembers,
		Intersect:      "teammembership",
		ContainerAttr:  "teamid",
		MemberAttr:     "systemuserid",
		Remove:         remove,
	}
}

func listMembership(name string, many, remove bool) MembershipExecutor {
	m := MembershipExecutor{
		Message:        name,
		Container:      "list",
		ContainerParam: message.ParamListID,
		MemberEntities: listMembers,
		Intersect:      "listmember",
		ContainerAttr:  "listid",
		MemberAttr:     "entityid",
		Remove:         remove,
	}
	if many {
		m.MembersParam = message.ParamMemberIDs
	} else {
		m.MemberParam = message.ParamEntityID
	}
	return m
}

// Membership executors for the built-in messages.
var (
	AddMembersTeam     = teamMembership(message.AddMembersTeam, false)
	RemoveMembersTeam  = teamMembership(message.RemoveMembersTeam, true)
	AddListMembersList = listMembership(message.AddListMembersList, true, false)
	AddMemberList      = listMembership(message.AddMemberList, false, false)
	RemoveMemberList   = listMembership(message.RemoveMemberList, false, true)
)
