package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Permission is a single capability grant carried by an API token.
type Permission uint8

const (
	PermRead Permission = 1 << iota
	PermUpload
	PermDelete
	PermAlbums
)

// AllPermissions lists every capability in display order.
var AllPermissions = []Permission{PermRead, PermUpload, PermDelete, PermAlbums}

func (p Permission) String() string {
	switch p {
	case PermRead:
		return "read"
	case PermUpload:
		return "upload"
	case PermDelete:
		return "delete"
	case PermAlbums:
		return "albums"
	}
	return fmt.Sprintf("permission(%d)", uint8(p))
}

func ParsePermission(s string) (Permission, error) {
	switch s {
	case "read":
		return PermRead, nil
	case "upload":
		return PermUpload, nil
	case "delete":
		return PermDelete, nil
	case "albums":
		return PermAlbums, nil
	}
	return 0, fmt.Errorf("unknown permission %q", s)
}

// Permissions is a set of grants. Grants never imply one another.
type Permissions uint8

func NewPermissions(perms ...Permission) Permissions {
	var set Permissions
	for _, p := range perms {
		set |= Permissions(p)
	}
	return set
}

func ParsePermissions(names []string) (Permissions, error) {
	var set Permissions
	for _, n := range names {
		p, err := ParsePermission(n)
		if err != nil {
			return 0, err
		}
		set |= Permissions(p)
	}
	return set, nil
}

func (s Permissions) Has(p Permission) bool {
	return s&Permissions(p) != 0
}

func (s Permissions) Names() []string {
	names := make([]string, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		if s.Has(p) {
			names = append(names, p.String())
		}
	}
	return names
}

// MarshalJSON stores the set as a sorted array of names.
func (s Permissions) MarshalJSON() ([]byte, error) {
	names := s.Names()
	sort.Strings(names)
	return json.Marshal(names)
}

func (s *Permissions) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParsePermissions(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
