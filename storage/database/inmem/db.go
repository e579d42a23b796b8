package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
)

type (
	// DB is a mutex-protected in-memory store, used in tests and with the "memory" database engine.
	DB struct {
		user       *userTable
		group      *groupTable
		assignment *assignmentTable
		chat       *chatTable
	}

	userTable struct {
		table map[string]user.User
		mutex sync.RWMutex
	}

	groupTable struct {
		table map[string]group.Group
		mutex sync.RWMutex
	}

	assignmentTable struct {
		table map[string]assignment.Assignment
		mutex sync.RWMutex
	}

	chatTable struct {
		table map[string]chat.Chat
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]user.User)},
		group:      &groupTable{table: make(map[string]group.Group)},
		assignment: &assignmentTable{table: make(map[string]assignment.Assignment)},
		chat:       &chatTable{table: make(map[string]chat.Chat)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]user.User)
	db.user.mutex.Unlock()

	db.group.mutex.Lock()
	db.group.table = make(map[string]group.Group)
	db.group.mutex.Unlock()

	db.assignment.mutex.Lock()
	db.assignment.table = make(map[string]assignment.Assignment)
	db.assignment.mutex.Unlock()

	db.chat.mutex.Lock()
	db.chat.table = make(map[string]chat.Chat)
	db.chat.mutex.Unlock()
}
