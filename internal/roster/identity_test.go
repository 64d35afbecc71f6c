package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

func TestStaffEmailFallbackChain(t *testing.T) {
	r := NewIdentityResolver(store.NewMemoryStore(), testDomain)

	tests := []struct {
		name string
		rec  powerschool.StaffRecord
		want string
	}{
		{
			name: "teacher login id wins",
			rec: powerschool.StaffRecord{
				DCID:           42,
				TeacherLoginID: strPtr("jsmith"),
				LoginID:        strPtr("john.smith"),
			},
			want: "jsmith@nrcaknights.com",
		},
		{
			name: "login id without teacher login id",
			rec: powerschool.StaffRecord{
				DCID:    42,
				LoginID: strPtr("john.smith"),
			},
			want: "john.smith@nrcaknights.com",
		},
		{
			name: "dcid when both logins missing",
			rec:  powerschool.StaffRecord{DCID: 42},
			want: "42@nrcaknights.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, r.StaffEmail(tt.rec))
		})
	}
}

func TestStudentEmailFallbackChain(t *testing.T) {
	r := NewIdentityResolver(store.NewMemoryStore(), testDomain)

	withUsername := powerschool.StudentRecord{ID: 7001, StudentUsername: strPtr("jdoe26")}
	require.Equal(t, "jdoe26@nrcaknights.com", r.StudentEmail(withUsername))

	withoutUsername := powerschool.StudentRecord{ID: 7001}
	require.Equal(t, "7001@nrcaknights.com", r.StudentEmail(withoutUsername))
}

func TestLinkCreatesAccountForNewProfile(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := NewIdentityResolver(st, testDomain)

	profile := seedStaffProfile(t, st, 42)
	require.Nil(t, profile.AccountID)

	err := r.Link(ctx, profile, true, "Jane", "Smith", "jsmith@nrcaknights.com")
	require.NoError(t, err)

	linked, ok := st.Profile(profile.ID)
	require.True(t, ok)
	require.NotNil(t, linked.AccountID)

	acct, err := st.Account(ctx, *linked.AccountID)
	require.NoError(t, err)
	require.Equal(t, "jsmith@nrcaknights.com", acct.Email)
	require.Equal(t, acct.Email, acct.Login)
	require.True(t, acct.Active)
}

func TestLinkUpdatesExistingLinkedAccount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := NewIdentityResolver(st, testDomain)

	profile := seedStaffProfile(t, st, 42)
	require.NoError(t, r.Link(ctx, profile, true, "Jane", "Smith", "old@nrcaknights.com"))
	linked, _ := st.Profile(profile.ID)
	require.NoError(t, st.SetAccountActive(*linked.AccountID, false))

	// A later run sees the same profile with a fresh login id.
	err := r.Link(ctx, linked, false, "Jane", "Smith-Jones", "jsmithjones@nrcaknights.com")
	require.NoError(t, err)

	acct, err := st.Account(ctx, *linked.AccountID)
	require.NoError(t, err)
	require.Equal(t, "jsmithjones@nrcaknights.com", acct.Email)
	require.Equal(t, "jsmithjones@nrcaknights.com", acct.Login)
	require.Equal(t, "Smith-Jones", acct.LastName)
	require.True(t, acct.Active, "relink must reactivate a disabled account")

	_, _, accounts := countsWithoutGrades(st)
	require.Equal(t, 1, accounts, "update path must not mint a second account")
}

func TestLinkRepairsProfileWithoutAccount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := NewIdentityResolver(st, testDomain)

	profile := seedStaffProfile(t, st, 42)

	// created=false with no linked account is the repair path.
	err := r.Link(ctx, profile, false, "Jane", "Smith", "jsmith@nrcaknights.com")
	require.NoError(t, err)

	linked, ok := st.Profile(profile.ID)
	require.True(t, ok)
	require.NotNil(t, linked.AccountID)
}

func TestLinkReusesAccountWithinRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := NewIdentityResolver(st, testDomain)

	first := seedStaffProfile(t, st, 42)
	second := seedStaffProfile(t, st, 43)

	require.NoError(t, r.Link(ctx, first, true, "Jane", "Smith", "shared@nrcaknights.com"))
	require.NoError(t, r.Link(ctx, second, true, "Jane", "Smith", "shared@nrcaknights.com"))

	firstLinked, _ := st.Profile(first.ID)
	secondLinked, _ := st.Profile(second.ID)
	require.Equal(t, *firstLinked.AccountID, *secondLinked.AccountID)

	_, _, accounts := countsWithoutGrades(st)
	require.Equal(t, 1, accounts)
}

func countsWithoutGrades(st *store.MemoryStore) (schools, profiles, accounts int) {
	schools, _, profiles, accounts = st.Counts()
	return schools, profiles, accounts
}
