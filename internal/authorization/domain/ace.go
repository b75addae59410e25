package domain

import (
	"strings"
)

// Ace is one principal's granted permission set on an acl key. An ace is never
// persisted with an empty permission set; a mutation that drains it removes
// the row instead.
type Ace struct {
	Principal   Principal     `json:"principal"`
	Permissions PermissionSet `json:"permissions"`
}

// NewAce validates and builds an access control entry.
func NewAce(principal Principal, permissions PermissionSet) (Ace, error) {
	ace := Ace{Principal: principal, Permissions: permissions}
	if err := ace.Validate(); err != nil {
		return Ace{}, err
	}
	return ace, nil
}

// Validate checks the principal and rejects empty or unknown permission sets.
func (a Ace) Validate() error {
	if err := a.Principal.Validate(); err != nil {
		return err
	}
	if a.Permissions.IsEmpty() {
		return ErrEmptyPermissions
	}
	return a.Permissions.Validate()
}

// Acl is the complete permission picture for one securable object: one ace per
// principal holding a nonzero permission set.
type Acl struct {
	AclKey AclKey `json:"aclKey"`
	Aces   []Ace  `json:"aces"`
}

// Action selects how an acl mutation combines the submitted aces with the
// stored ones.
type Action string

const (
	// ActionAdd unions the submitted permissions into the existing set.
	ActionAdd Action = "ADD"

	// ActionSet replaces the existing set with the submitted one exactly.
	ActionSet Action = "SET"

	// ActionRemove subtracts the submitted permissions; a drained set deletes
	// the ace row.
	ActionRemove Action = "REMOVE"
)

// ParseAction maps a string to an Action.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(value))) {
	case ActionAdd:
		return ActionAdd, nil
	case ActionSet:
		return ActionSet, nil
	case ActionRemove:
		return ActionRemove, nil
	}
	return "", ErrUnknownAction
}

// AclData couples a mutation action with the aces it applies to one acl key.
type AclData struct {
	Action Action `json:"action"`
	Acl    Acl    `json:"acl"`
}

// Validate checks the action, the acl key, and every ace.
func (d AclData) Validate() error {
	if _, err := ParseAction(string(d.Action)); err != nil {
		return err
	}
	if err := d.Acl.AclKey.Validate(); err != nil {
		return err
	}
	for _, ace := range d.Acl.Aces {
		if err := ace.Validate(); err != nil {
			return err
		}
	}
	return nil
}
