package message

import (
	"slices"

	"github.com/roach88/recordsim/internal/fault"
)

// Contract declares the parameters a message accepts.
type Contract struct {
	Name     string
	Required []string
	Optional []string
}

// Check returns MissingRequiredParameter for the first required parameter
// the request does not carry.
func (c Contract) Check(req *Request) error {
	for _, p := range c.Required {
		if !req.Has(p) {
			return fault.NewMissingParameter(req.Name, p)
		}
	}
	return nil
}

// Accepts reports whether name is declared by the contract.
func (c Contract) Accepts(name string) bool {
	return slices.Contains(c.Required, name) || slices.Contains(c.Optional, name)
}

// Contracts is a registry of contracts by message name.
type Contracts map[string]Contract

// Register adds or replaces a contract.
func (cs Contracts) Register(c Contract) {
	cs[c.Name] = c
}

// Lookup returns the contract for a message name.
func (cs Contracts) Lookup(name string) (Contract, bool) {
	c, ok := cs[name]
	return c, ok
}

// Check applies the contract registered for req.Name. Messages without a
// contract pass.
func (cs Contracts) Check(req *Request) error {
	c, ok := cs[req.Name]
	if !ok {
		return nil
	}
	return c.Check(req)
}

// BuiltinContracts returns the contracts of the built-in messages.
func BuiltinContracts() Contracts {
	cs := Contracts{}
	for _, c := range []Contract{
		{Name: Create, Required: []string{ParamTarget}},
		{Name: Retrieve, Required: []string{ParamTarget}, Optional: []string{ParamColumnSet}},
		{Name: RetrieveMultiple, Optional: []string{ParamQuery, ParamFetchXML}},
		{Name: Update, Required: []string{ParamTarget}},
		{Name: Delete, Required: []string{ParamTarget}},
		{Name: Upsert, Required: []string{ParamTarget}},
		{Name: Assign, Required: []string{ParamTarget, ParamAssignee}},
		{Name: SetState, Required: []string{ParamEntityMoniker, ParamState, ParamStatus}},
		{Name: CloseIncident, Required: []string{ParamIncidentResolution, ParamStatus}, Optional: []string{ParamState}},
		{Name: CloseQuote, Required: []string{ParamQuoteClose, ParamStatus}, Optional: []string{ParamState}},
		{Name: CloseOpportunity, Required: []string{ParamOpportunityClose, ParamStatus}, Optional: []string{ParamState}},
		{Name: ReviseQuote, Required: []string{ParamQuoteID}, Optional: []string{ParamColumnSet}},
		{Name: AddMembersTeam, Required: []string{ParamTeamID, ParamMemberIDs}},
		{Name: RemoveMembersTeam, Required: []string{ParamTeamID, ParamMemberIDs}},
		{Name: AddListMembersList, Required: []string{ParamListID, ParamMemberIDs}},
		{Name: AddMemberList, Required: []string{ParamListID, ParamEntityID}},
		{Name: RemoveMemberList, Required: []string{ParamListID, ParamEntityID}},
		{Name: InsertOptionValue, Required: []string{ParamLabel}, Optional: []string{
			ParamOptionSetName, ParamEntityLogicalName, ParamAttributeLogicalName, ParamValue,
		}},
		{Name: UpdateOptionValue, Required: []string{ParamValue, ParamLabel}, Optional: []string{
			ParamOptionSetName, ParamEntityLogicalName, ParamAttributeLogicalName,
		}},
		{Name: WhoAmI},
	} {
		cs.Register(c)
	}
	return cs
}
