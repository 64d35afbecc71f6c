// Package roster implements the PowerSchool-to-store reconciliation engine:
// schools, staff, students, homeroom rosters, and the login accounts derived
// from them.
//
// Execution is strictly sequential: one source call at a time, one record at
// a time, no overlapping writes. Concurrent runs against the same store race
// on upserts and must be prevented by the scheduler, not this package.
package roster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

// IdentityResolver derives canonical login emails and links profiles to user
// accounts. It lives for one sync run: the email cache must not survive
// across runs, since source data may change between them.
type IdentityResolver struct {
	store       store.Store
	emailDomain string

	// cache maps derived email to the account matched or created for it
	// during this run, so a staff and student record deriving the same
	// email resolve to one account.
	cache map[string]domain.UserAccount
}

// NewIdentityResolver creates a resolver for a single sync run.
func NewIdentityResolver(st store.Store, emailDomain string) *IdentityResolver {
	return &IdentityResolver{
		store:       st,
		emailDomain: emailDomain,
		cache:       make(map[string]domain.UserAccount),
	}
}

// StaffEmail derives the login email for a staff record. Fallback order:
// teacherloginid, then loginid, then the staff DCID.
func (r *IdentityResolver) StaffEmail(rec powerschool.StaffRecord) string {
	switch {
	case rec.TeacherLoginID != nil:
		return *rec.TeacherLoginID + "@" + r.emailDomain
	case rec.LoginID != nil:
		return *rec.LoginID + "@" + r.emailDomain
	default:
		return strconv.FormatInt(rec.DCID, 10) + "@" + r.emailDomain
	}
}

// StudentEmail derives the login email for a student record. Fallback order:
// student_username, then the student's external id.
func (r *IdentityResolver) StudentEmail(rec powerschool.StudentRecord) string {
	if rec.StudentUsername != nil {
		return *rec.StudentUsername + "@" + r.emailDomain
	}
	return strconv.FormatInt(rec.ID, 10) + "@" + r.emailDomain
}

// Link attaches the right user account to a profile:
//
//  1. Newly created profile: look up or create an account matching the four
//     identity fields and attach it.
//  2. Existing profile with a linked account: rewrite that account's names,
//     email and login, and force it active.
//  3. Existing profile with no account (data repair): as case 1.
//
// After Link, the profile has exactly one linked, active account whose email
// reflects the latest source data.
func (r *IdentityResolver) Link(ctx context.Context, profile domain.Profile, created bool, firstName, lastName, email string) error {
	if !created && profile.AccountID != nil {
		err := r.store.UpdateAccount(ctx, store.AccountUpdate{
			ID:        *profile.AccountID,
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			Login:     email,
			Active:    true,
		})
		if err != nil {
			return fmt.Errorf("update account for %s: %w", email, err)
		}
		return nil
	}

	acct, ok := r.cache[email]
	if !ok {
		hash, err := initialPasswordHash()
		if err != nil {
			return fmt.Errorf("initial password for %s: %w", email, err)
		}
		var acctCreated bool
		acct, acctCreated, err = r.store.FindOrCreateAccount(ctx, store.AccountSpec{
			FirstName:    firstName,
			LastName:     lastName,
			Email:        email,
			Login:        email,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("find or create account for %s: %w", email, err)
		}
		if acctCreated {
			logger.Debug("Created user account", zap.String("login", email))
		}
		r.cache[email] = acct
	}

	if err := r.store.LinkAccount(ctx, profile.ID, acct.ID); err != nil {
		return fmt.Errorf("link account %s to profile %s: %w", acct.ID, profile.ID, err)
	}
	return nil
}

// initialPasswordHash produces a bcrypt hash of a random throwaway secret.
// Accounts are created unusable until a password reset; the hash only
// guarantees no guessable default credential exists.
func initialPasswordHash() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}
