package coreapi

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type User struct {
	ID     string
	Name   string
	Email  string
	Joined time.Time `api:"joined_on"`
	Role   Role
	Pets   []any
}

type Cat struct {
	Name  string
	Lives int
}

type Dog struct {
	Name string
	Good bool
}

// Directory is an in-memory user store safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewDirectory(users ...*User) *Directory {
	d := &Directory{users: make(map[string]*User, len(users))}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

// Seed returns a directory with a few sample accounts.
func Seed() *Directory {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return NewDirectory(
		&User{
			ID: "1", Name: "Ada", Email: "ada@example.com", Joined: day(2021, time.March, 4), Role: RoleAdmin,
			Pets: []any{Cat{Name: "Babbage", Lives: 9}},
		},
		&User{
			ID: "2", Name: "Grace", Email: "grace@example.com", Joined: day(2022, time.July, 19), Role: RoleMember,
			Pets: []any{Dog{Name: "Cobol", Good: true}, Cat{Name: "Moth", Lives: 7}},
		},
		&User{
			ID: "3", Name: "Linus", Email: "linus@example.com", Joined: day(2023, time.January, 2), Role: RoleMember,
		},
	)
}

func (d *Directory) Put(u *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.Pets == nil {
		u.Pets = []any{}
	}
	d.users[u.ID] = u
}

func (d *Directory) ByID(id string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[id]
}

func (d *Directory) ByEmail(email string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// List returns users ordered by ID. An empty role matches everyone; a
// non-positive limit returns all matches.
func (d *Directory) List(role Role, limit int) []*User {
	d.mu.RLock()
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
