package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/database"
	"famledger/internal/models"
)

// openTestDB creates a fresh SQLite database with migrations applied.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func mustCreateUser(t *testing.T, repo *UserRepository, email string) *models.User {
	t.Helper()
	user, err := repo.CreateUser(email, "hash", "Test User")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

func TestUserRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	repo := NewUserRepository(db)

	user := mustCreateUser(t, repo, "Maria@Example.com")
	if user.Email != "maria@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}

	found, err := repo.GetUserByEmail("MARIA@example.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if found == nil || found.ID != user.ID {
		t.Fatalf("lookup by email returned %+v", found)
	}

	missing, err := repo.GetUserByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("unknown email should return nil")
	}

	oauthUser, err := repo.CreateOAuthUser("g@example.com", "G", "google", "sub-1", "hash")
	if err != nil {
		t.Fatalf("CreateOAuthUser: %v", err)
	}
	bySubject, err := repo.GetUserByOAuthSubject("google", "sub-1")
	if err != nil {
		t.Fatalf("GetUserByOAuthSubject: %v", err)
	}
	if bySubject == nil || bySubject.ID != oauthUser.ID {
		t.Fatalf("lookup by oauth subject returned %+v", bySubject)
	}
}

func TestRefreshTokenIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	repo := NewUserRepository(db)
	user := mustCreateUser(t, repo, "maria@example.com")

	if err := repo.CreateRefreshToken("tok-1", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	if err := repo.CreateRefreshToken("tok-old", user.ID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	rt, err := repo.GetRefreshToken("tok-1")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if rt == nil || rt.UserID != user.ID || rt.Revoked {
		t.Fatalf("token = %+v", rt)
	}

	if err := repo.RevokeRefreshToken("tok-1"); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	rt, err = repo.GetRefreshToken("tok-1")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if !rt.Revoked {
		t.Error("token should be revoked")
	}

	if err := repo.DeleteExpiredRefreshTokens(); err != nil {
		t.Fatalf("DeleteExpiredRefreshTokens: %v", err)
	}
	gone, err := repo.GetRefreshToken("tok-old")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if gone != nil {
		t.Error("expired token should be deleted")
	}
}

func TestFamilyRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)

	owner := mustCreateUser(t, users, "owner@example.com")
	other := mustCreateUser(t, users, "other@example.com")

	family, err := families.CreateFamily("Silva", "shared", models.DefaultFamilySettings(), owner.ID)
	if err != nil {
		t.Fatalf("CreateFamily: %v", err)
	}

	member, err := families.GetMember(family.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if member == nil || member.Role != models.RoleOwner {
		t.Fatalf("owner membership = %+v", member)
	}

	if err := families.AddMember(family.ID, other.ID, models.RoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	count, err := families.CountMembers(family.ID)
	if err != nil {
		t.Fatalf("CountMembers: %v", err)
	}
	if count != 2 {
		t.Errorf("member count = %d, want 2", count)
	}

	listed, err := families.ListMembers(family.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d members, want 2", len(listed))
	}
	if listed[0].UserEmail == "" {
		t.Error("listing should join user email")
	}

	if err := families.TransferOwnership(family.ID, owner.ID, other.ID); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	newOwner, _ := families.GetMember(family.ID, other.ID)
	oldOwner, _ := families.GetMember(family.ID, owner.ID)
	if newOwner.Role != models.RoleOwner || oldOwner.Role != models.RoleAdmin {
		t.Errorf("roles after transfer = %s/%s", newOwner.Role, oldOwner.Role)
	}

	if err := families.DeleteFamily(family.ID); err != nil {
		t.Fatalf("DeleteFamily: %v", err)
	}
	gone, err := families.GetFamilyByID(family.ID)
	if err != nil {
		t.Fatalf("GetFamilyByID: %v", err)
	}
	if gone != nil {
		t.Error("family should be deleted")
	}
	if m, _ := families.GetMember(family.ID, other.ID); m != nil {
		t.Error("memberships should be deleted with the family")
	}
}

func TestInviteRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)
	invites := NewInviteRepository(db)

	owner := mustCreateUser(t, users, "owner@example.com")
	guest := mustCreateUser(t, users, "guest@example.com")
	family, err := families.CreateFamily("Silva", "", models.DefaultFamilySettings(), owner.ID)
	if err != nil {
		t.Fatalf("CreateFamily: %v", err)
	}

	now := time.Now()
	invite, err := invites.CreateInvite(family.ID, "Guest@Example.com", models.RoleMember, owner.ID, now.Add(models.InviteTTL))
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	if invite.Email != "guest@example.com" {
		t.Errorf("invite email = %q, want lowercased", invite.Email)
	}

	// The pending unique index blocks a second open invite for the pair.
	if _, err := invites.CreateInvite(family.ID, "guest@example.com", models.RoleViewer, owner.ID, now.Add(models.InviteTTL)); err == nil {
		t.Error("duplicate pending invite should violate the unique index")
	}

	pending, err := invites.HasPendingInvite(family.ID, "guest@example.com", now)
	if err != nil {
		t.Fatalf("HasPendingInvite: %v", err)
	}
	if !pending {
		t.Error("invite should be pending")
	}

	full, err := invites.GetInviteByID(invite.ID)
	if err != nil {
		t.Fatalf("GetInviteByID: %v", err)
	}
	if full.FamilyName != "Silva" {
		t.Errorf("FamilyName = %q, want joined family name", full.FamilyName)
	}
	if full.InviterName == "" {
		t.Error("InviterName should be joined")
	}

	if err := invites.AcceptInvite(invite.ID, guest.ID); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	m, err := families.GetMember(family.ID, guest.ID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m == nil || m.Role != models.RoleMember {
		t.Fatalf("membership after accept = %+v", m)
	}

	// Accepting again loses on the status guard.
	if err := invites.AcceptInvite(invite.ID, guest.ID); err == nil {
		t.Error("second accept should fail on the pending guard")
	}

	open, err := invites.ListPendingByEmail("guest@example.com", now)
	if err != nil {
		t.Fatalf("ListPendingByEmail: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("accepted invite should not list as pending, got %d", len(open))
	}
}

func TestInviteReissueAfterExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)
	invites := NewInviteRepository(db)

	owner := mustCreateUser(t, users, "owner@example.com")
	family, err := families.CreateFamily("Silva", "", models.DefaultFamilySettings(), owner.ID)
	if err != nil {
		t.Fatalf("CreateFamily: %v", err)
	}

	// An invite that lapsed without being accepted or declined keeps its
	// stored 'pending' status; it must not block a fresh invite.
	stale, err := invites.CreateInvite(family.ID, "guest@example.com", models.RoleMember, owner.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	pending, err := invites.HasPendingInvite(family.ID, "guest@example.com", time.Now())
	if err != nil {
		t.Fatalf("HasPendingInvite: %v", err)
	}
	if pending {
		t.Fatal("lapsed invite should not count as pending")
	}

	fresh, err := invites.CreateInvite(family.ID, "guest@example.com", models.RoleViewer, owner.ID, time.Now().Add(models.InviteTTL))
	if err != nil {
		t.Fatalf("re-invite after expiry failed: %v", err)
	}

	// The lapsed row is cleared in the same transaction as the insert.
	gone, err := invites.GetInviteByID(stale.ID)
	if err != nil {
		t.Fatalf("GetInviteByID: %v", err)
	}
	if gone != nil {
		t.Error("lapsed invite row should be removed on reissue")
	}
	kept, err := invites.GetInviteByID(fresh.ID)
	if err != nil {
		t.Fatalf("GetInviteByID: %v", err)
	}
	if kept == nil || kept.Role != models.RoleViewer {
		t.Fatalf("fresh invite = %+v", kept)
	}

	// A live pending invite still trips the unique index.
	if _, err := invites.CreateInvite(family.ID, "guest@example.com", models.RoleMember, owner.ID, time.Now().Add(models.InviteTTL)); err == nil {
		t.Error("open invite should still block a duplicate")
	}
}

func TestTransactionRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	users := NewUserRepository(db)
	categories := NewCategoryRepository(db)
	transactions := NewTransactionRepository(db)

	user := mustCreateUser(t, users, "maria@example.com")
	if err := categories.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	// Seeding is idempotent.
	if err := categories.SeedDefaults(); err != nil {
		t.Fatalf("second SeedDefaults: %v", err)
	}
	cats, err := categories.ListForUser(user.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(cats) != 11 {
		t.Fatalf("got %d seeded categories, want 11", len(cats))
	}
	category := cats[0]

	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	for _, txn := range []*models.Transaction{
		{UserID: user.ID, Amount: decimal.RequireFromString("100.50"), Type: models.TypeIncome, CategoryID: category.ID, Date: jan, AccountID: "acc-1"},
		{UserID: user.ID, Amount: decimal.RequireFromString("40"), Type: models.TypeExpense, CategoryID: category.ID, Date: feb, AccountID: "acc-1", Description: "mercado"},
	} {
		if _, err := transactions.CreateTransaction(txn); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	all, err := transactions.ListByUser(user.ID, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d transactions, want 2", len(all))
	}
	if !all[0].Date.After(all[1].Date) {
		t.Error("listing should be newest first")
	}
	if !all[1].Amount.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("amount round-tripped as %s", all[1].Amount)
	}

	janOnly, err := transactions.ListByUser(user.ID, TransactionFilter{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ListByUser with window: %v", err)
	}
	if len(janOnly) != 1 {
		t.Fatalf("window returned %d transactions, want 1", len(janOnly))
	}

	found, err := transactions.FindByDescription(user.ID, "acc-1", "mercado")
	if err != nil {
		t.Fatalf("FindByDescription: %v", err)
	}
	if found == nil {
		t.Fatal("expected to find the described transaction")
	}

	parts := []models.Transaction{
		{UserID: user.ID, Amount: decimal.RequireFromString("25"), Type: models.TypeExpense, CategoryID: category.ID, Date: feb, AccountID: "acc-1"},
		{UserID: user.ID, Amount: decimal.RequireFromString("15"), Type: models.TypeExpense, CategoryID: category.ID, Date: feb, AccountID: "acc-1"},
	}
	if err := transactions.ReplaceTransaction(found.ID, parts); err != nil {
		t.Fatalf("ReplaceTransaction: %v", err)
	}
	original, err := transactions.GetTransactionByID(found.ID)
	if err != nil {
		t.Fatalf("GetTransactionByID: %v", err)
	}
	if original != nil {
		t.Error("original should be gone after replace")
	}
	all, err = transactions.ListByUser(user.ID, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d transactions after replace, want 3", len(all))
	}
}

func TestGoalRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	users := NewUserRepository(db)
	families := NewFamilyRepository(db)
	goals := NewGoalRepository(db)

	user := mustCreateUser(t, users, "maria@example.com")
	goal, err := goals.CreateGoal(&models.Goal{
		Name:          "Férias",
		TargetAmount:  decimal.RequireFromString("1500"),
		CurrentAmount: decimal.Zero,
		UserID:        user.ID,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	loaded, err := goals.GetGoalByID(goal.ID)
	if err != nil {
		t.Fatalf("GetGoalByID: %v", err)
	}
	if loaded.Deadline != nil {
		t.Error("deadline should be nil when unset")
	}
	if !loaded.TargetAmount.Equal(decimal.RequireFromString("1500")) {
		t.Errorf("target round-tripped as %s", loaded.TargetAmount)
	}

	if err := goals.UpdateProgress(goal.ID, decimal.RequireFromString("500.25")); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := goals.UpdateGoal(goal.ID, "Férias no Algarve", decimal.RequireFromString("2000"), &deadline); err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}

	loaded, err = goals.GetGoalByID(goal.ID)
	if err != nil {
		t.Fatalf("GetGoalByID: %v", err)
	}
	if !loaded.CurrentAmount.Equal(decimal.RequireFromString("500.25")) {
		t.Errorf("current = %s, want 500.25", loaded.CurrentAmount)
	}
	if loaded.Name != "Férias no Algarve" || loaded.Deadline == nil {
		t.Errorf("updated goal = %+v", loaded)
	}

	family, err := families.CreateFamily("Silva", "", models.DefaultFamilySettings(), user.ID)
	if err != nil {
		t.Fatalf("CreateFamily: %v", err)
	}
	if _, err := goals.CreateGoal(&models.Goal{
		Name:         "Casa nova",
		TargetAmount: decimal.RequireFromString("10000"),
		UserID:       user.ID,
		FamilyID:     family.ID,
	}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	shared, err := goals.ListByFamily(family.ID)
	if err != nil {
		t.Fatalf("ListByFamily: %v", err)
	}
	if len(shared) != 1 || shared[0].FamilyID != family.ID {
		t.Fatalf("family goals = %+v, want the one shared goal", shared)
	}
	personal, err := goals.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(personal) != 2 {
		t.Errorf("got %d goals for the user, want 2", len(personal))
	}

	if err := goals.DeleteGoal(goal.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	gone, err := goals.GetGoalByID(goal.ID)
	if err != nil {
		t.Fatalf("GetGoalByID: %v", err)
	}
	if gone != nil {
		t.Error("goal should be deleted")
	}
}

func TestSettingsRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	settings := NewSettingsRepository(db)

	if pct := settings.AutoSavePercent(); pct != 0 {
		t.Errorf("unset percent = %d, want 0", pct)
	}

	if err := settings.SetAutoSavePercent(10); err != nil {
		t.Fatalf("SetAutoSavePercent: %v", err)
	}
	if pct := settings.AutoSavePercent(); pct != 10 {
		t.Errorf("percent = %d, want 10", pct)
	}

	// Upsert path: setting again overwrites.
	if err := settings.SetAutoSavePercent(25); err != nil {
		t.Fatalf("SetAutoSavePercent: %v", err)
	}
	if pct := settings.AutoSavePercent(); pct != 25 {
		t.Errorf("percent = %d, want 25", pct)
	}
}
