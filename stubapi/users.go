package stubapi

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// User is a stub account record.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash []byte
	IsActive     bool
	IsSuperuser  bool
}

type userTable struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[string]*User
}

func newUserTable() *userTable {
	return &userTable{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
	}
}

func (t *userTable) add(email, password, fullName string, superuser bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "[userTable add] hash password")
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  superuser,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byEmail[email] = user
	t.byID[user.ID] = user
	return user, nil
}

func (t *userTable) getByEmail(email string) (*User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	user, ok := t.byEmail[email]
	return user, ok
}

func (t *userTable) getByID(id string) (*User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	user, ok := t.byID[id]
	return user, ok
}

// findOrCreate backs the Google flow: external identities get an account on
// first sight, with an unusable password.
func (t *userTable) findOrCreate(email, fullName string) (*User, error) {
	if user, ok := t.getByEmail(email); ok {
		return user, nil
	}
	return t.add(email, uuid.New().String(), fullName, false)
}

func (u *User) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}
