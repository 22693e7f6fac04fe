package executor

import "github.com/roach88/recordsim/internal/message"

var builtinFuncs = []struct {
	name string
	fn   Func
}{
	{message.Create, create},
	{message.Retrieve, retrieve},
	{message.RetrieveMultiple, retrieveMultiple},
	{message.Update, update},
	{message.Delete, deleteRecord},
	{message.Upsert, upsert},
	{message.Assign, assign},
	{message.SetState, setState},
	{message.InsertOptionValue, insertOptionValue},
	{message.UpdateOptionValue, updateOptionValue},
	{message.WhoAmI, whoAmI},
}

// Binding pairs an executor with the message name it answers to. An empty
// Name registers the executor for the CanExecute scan only.
type Binding struct {
	Name     string
	Executor Executor
}

// Builtins returns the built-in executors in registration order.
func Builtins() []Binding {
	out := make([]Binding, 0, len(builtinFuncs)+9)
	for _, b := range builtinFuncs {
		out = append(out, Binding{b.name, Named(b.name, b.fn)})
	}
	for _, c := range []CloseExecutor{CloseIncident, CloseQuote, CloseOpportunity} {
		out = append(out, Binding{c.Message, c})
	}
	out = append(out, Binding{ReviseQuote.Message, ReviseQuote})
	for _, m := range []MembershipExecutor{
		AddMembersTeam, RemoveMembersTeam,
		AddListMembersList, AddMemberList, RemoveMemberList,
	} {
		out = append(out, Binding{m.Message, m})
	}
	return out
}

// RegisterBuiltins adds the built-in executors to r.
func RegisterBuiltins(r *Registry) {
	for _, b := range Builtins() {
		r.Register(b.Name, b.Executor)
	}
}
