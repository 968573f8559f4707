package staff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/schoolhub/schoolhub-api/internal/domain/school"
	"github.com/schoolhub/schoolhub-api/internal/domain/user"
)

// fakeRepo is an in-memory Repository that enforces the same uniqueness
// rules as the database constraints. assignErr simulates a failed grant
// write; like the real transactional methods, a failing write must leave
// nothing behind.
type fakeRepo struct {
	catalog     []*Permission
	assignments map[uuid.UUID]map[uuid.UUID]bool
	admins      map[uuid.UUID]*AdminProfile
	teachers    map[uuid.UUID]*TeacherProfile
	users       map[uuid.UUID]*user.User
	assignErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		assignments: map[uuid.UUID]map[uuid.UUID]bool{},
		admins:      map[uuid.UUID]*AdminProfile{},
		teachers:    map[uuid.UUID]*TeacherProfile{},
		users:       map[uuid.UUID]*user.User{},
	}
}

func (r *fakeRepo) EnsureCatalog(_ context.Context) error {
	if len(r.catalog) == 0 {
		for _, row := range catalogRows() {
			p := row
			r.catalog = append(r.catalog, &p)
		}
	}
	return nil
}

func (r *fakeRepo) FindPermission(_ context.Context, res Resource, at AccessType) (*Permission, error) {
	for _, p := range r.catalog {
		if p.Resource == res && p.AccessType == at {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListPermissions(_ context.Context, filter PermissionFilter) ([]*Permission, error) {
	var out []*Permission
	for _, p := range r.catalog {
		if filter.Resource != nil && p.Resource != *filter.Resource {
			continue
		}
		if filter.AccessType != nil && p.AccessType != *filter.AccessType {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeRepo) AssignPermissions(_ context.Context, adminProfileID uuid.UUID, permissionIDs []uuid.UUID) error {
	if r.assignErr != nil && len(permissionIDs) > 0 {
		return r.assignErr
	}
	set := r.assignments[adminProfileID]
	if set == nil {
		set = map[uuid.UUID]bool{}
		r.assignments[adminProfileID] = set
	}
	for _, id := range permissionIDs {
		set[id] = true
	}
	return nil
}

func (r *fakeRepo) ListForAdmin(_ context.Context, adminProfileID uuid.UUID) ([]*Permission, error) {
	var out []*Permission
	for _, p := range r.catalog {
		if r.assignments[adminProfileID][p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) insertProfile(profile *AdminProfile) error {
	if profile.IsPrincipal {
		for _, existing := range r.admins {
			if existing.SchoolID == profile.SchoolID && existing.IsPrincipal {
				return ErrPrincipalExists
			}
		}
	}
	for _, existing := range r.admins {
		if existing.UserID == profile.UserID && existing.SchoolID == profile.SchoolID {
			return ErrAlreadyAdministrator
		}
	}
	cp := *profile
	r.admins[profile.ID] = &cp
	return nil
}

func (r *fakeRepo) CreateAdminProfile(ctx context.Context, identity *user.User, profile *AdminProfile, permissionIDs []uuid.UUID) error {
	if r.assignErr != nil && len(permissionIDs) > 0 {
		return r.assignErr
	}
	if identity != nil {
		for _, u := range r.users {
			if u.Email == identity.Email {
				return user.ErrEmailTaken
			}
		}
	}
	if err := r.insertProfile(profile); err != nil {
		return err
	}
	if identity != nil {
		cp := *identity
		r.users[identity.ID] = &cp
	}
	return r.AssignPermissions(ctx, profile.ID, permissionIDs)
}

func (r *fakeRepo) GetAdminProfile(_ context.Context, id uuid.UUID) (*AdminProfile, error) {
	if p, ok := r.admins[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) GetAdminProfileByUser(_ context.Context, userID, schoolID uuid.UUID) (*AdminProfile, error) {
	for _, p := range r.admins {
		if p.UserID == userID && p.SchoolID == schoolID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListAdminProfiles(_ context.Context, schoolID uuid.UUID) ([]*AdminProfile, error) {
	var out []*AdminProfile
	for _, p := range r.admins {
		if p.SchoolID == schoolID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindPrincipal(_ context.Context, schoolID uuid.UUID) (*AdminProfile, error) {
	for _, p := range r.admins {
		if p.SchoolID == schoolID && p.IsPrincipal {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) UpdateAdminProfile(_ context.Context, profile *AdminProfile) error {
	if profile.IsPrincipal {
		for _, existing := range r.admins {
			if existing.SchoolID == profile.SchoolID && existing.IsPrincipal && existing.ID != profile.ID {
				return ErrPrincipalExists
			}
		}
	}
	cp := *profile
	r.admins[profile.ID] = &cp
	return nil
}

func (r *fakeRepo) PromotePrincipal(_ context.Context, schoolID, targetID uuid.UUID) (*AdminProfile, *AdminProfile, error) {
	target, ok := r.admins[targetID]
	if !ok || target.SchoolID != schoolID {
		return nil, nil, ErrAdminNotFound
	}
	if target.IsPrincipal {
		return nil, nil, ErrAlreadyPrincipal
	}

	var demoted *AdminProfile
	for _, p := range r.admins {
		if p.SchoolID == schoolID && p.IsPrincipal {
			p.Role = RoleAdministrator
			p.IsPrincipal = false
			cp := *p
			demoted = &cp
			break
		}
	}

	target.Role = RolePrincipal
	target.IsPrincipal = true
	cp := *target
	return demoted, &cp, nil
}

func (r *fakeRepo) DeleteAdminProfile(_ context.Context, profile *AdminProfile) (bool, error) {
	if profile.IsPrincipal {
		fallback := 0
		for _, p := range r.admins {
			if p.SchoolID == profile.SchoolID && p.ID != profile.ID && !p.IsPrincipal {
				fallback++
			}
		}
		if fallback == 0 {
			return false, ErrNoFallbackAdmin
		}
	}
	delete(r.admins, profile.ID)

	siblings := 0
	for _, p := range r.admins {
		if p.UserID == profile.UserID {
			siblings++
		}
	}
	for _, tp := range r.teachers {
		if tp.UserID == profile.UserID {
			siblings++
		}
	}
	if siblings == 0 {
		delete(r.users, profile.UserID)
		return true, nil
	}
	return false, nil
}

func (r *fakeRepo) GetTeacherProfile(_ context.Context, id uuid.UUID) (*TeacherProfile, error) {
	if tp, ok := r.teachers[id]; ok {
		cp := *tp
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) ConvertTeacher(ctx context.Context, teacher *TeacherProfile, profile *AdminProfile, keepAsTeacher bool, permissionIDs []uuid.UUID) error {
	if r.assignErr != nil && len(permissionIDs) > 0 {
		return r.assignErr
	}
	if err := r.insertProfile(profile); err != nil {
		return err
	}
	if u, ok := r.users[teacher.UserID]; ok {
		u.Role = user.RoleSchoolAdmin
	}
	if !keepAsTeacher {
		delete(r.teachers, teacher.ID)
	}
	return r.AssignPermissions(ctx, profile.ID, permissionIDs)
}

// fakeUsers reads the identity map shared with fakeRepo
type fakeUsers struct {
	repo *fakeRepo
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	cp := *u
	f.repo.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := f.repo.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.repo.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, id uuid.UUID, role user.Role) error {
	if u, ok := f.repo.users[id]; ok {
		u.Role = role
	}
	return nil
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id uuid.UUID, status user.Status) error {
	if u, ok := f.repo.users[id]; ok {
		u.Status = status
	}
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.repo.users, id)
	return nil
}

type fakeSchools struct {
	schools map[uuid.UUID]*school.School
}

func (f *fakeSchools) GetByID(_ context.Context, id uuid.UUID) (*school.School, error) {
	if s, ok := f.schools[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSchools) GetBySubdomain(_ context.Context, subdomain string) (*school.School, error) {
	for _, s := range f.schools {
		if s.Subdomain == subdomain {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

type notification struct {
	kind         string
	to           string
	oldRole      string
	newRole      string
	role         string
	tempPassword string
	schoolName   string
}

type recordingNotifier struct {
	sent []notification
}

func (n *recordingNotifier) RoleChanged(to, _, oldRole, newRole, schoolName string) {
	n.sent = append(n.sent, notification{kind: "role_changed", to: to, oldRole: oldRole, newRole: newRole, schoolName: schoolName})
}

func (n *recordingNotifier) PrincipalPromoted(to, _, schoolName string) {
	n.sent = append(n.sent, notification{kind: "principal_promoted", to: to, schoolName: schoolName})
}

func (n *recordingNotifier) WelcomeAdmin(to, _, schoolName, role, tempPassword string) {
	n.sent = append(n.sent, notification{kind: "welcome_admin", to: to, role: role, tempPassword: tempPassword, schoolName: schoolName})
}

type testEnv struct {
	svc      *Service
	repo     *fakeRepo
	notifier *recordingNotifier
	schools  *fakeSchools
	schoolID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	if err := repo.EnsureCatalog(context.Background()); err != nil {
		t.Fatalf("EnsureCatalog: %v", err)
	}

	schoolID := uuid.New()
	schools := &fakeSchools{schools: map[uuid.UUID]*school.School{
		schoolID: {ID: schoolID, Name: "Riverside High", Subdomain: "riverside", IsActive: true},
	}}
	notifier := &recordingNotifier{}

	svc := NewService(repo, &fakeUsers{repo: repo}, schools, repo, NewPermissionCache(nil), notifier)
	return &testEnv{svc: svc, repo: repo, notifier: notifier, schools: schools, schoolID: schoolID}
}

func (e *testEnv) createAdmin(t *testing.T, req *CreateAdminRequest) *AdminProfile {
	t.Helper()
	profile, err := e.svc.CreateAdmin(context.Background(), e.schoolID, req)
	if err != nil {
		t.Fatalf("CreateAdmin(%s): %v", req.Role, err)
	}
	return profile
}

func TestCreateAdminDefaultReadGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Dana", LastName: "Okafor", Email: "dana@riverside.edu", Role: "Registrar",
	})

	if profile.IsPrincipal {
		t.Fatal("Registrar must not be principal")
	}
	perms, err := env.svc.ListForAdmin(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ListForAdmin: %v", err)
	}
	if want := len(Resources()); len(perms) != want {
		t.Fatalf("default grant has %d rows, want %d", len(perms), want)
	}
	for _, p := range perms {
		if p.AccessType != AccessRead {
			t.Errorf("default grant contains %s on %s, want read only", p.AccessType, p.Resource)
		}
	}

	// Identity was created with a temporary password and welcomed.
	u, _ := (&fakeUsers{repo: env.repo}).GetByEmail(ctx, "dana@riverside.edu")
	if u == nil {
		t.Fatal("identity account was not created")
	}
	if u.Role != user.RoleSchoolAdmin {
		t.Errorf("identity role = %s, want school_admin", u.Role)
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].kind != "welcome_admin" {
		t.Fatalf("notifications = %+v, want one welcome_admin", env.notifier.sent)
	}
	if env.notifier.sent[0].tempPassword == "" {
		t.Error("welcome email for a new identity must carry the temporary password")
	}
}

func TestCreateAdminCustomGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@riverside.edu", Role: "Admissions Officer",
		Permissions: []PermissionRequest{
			{Resource: "students", AccessType: "write"},
			{Resource: "students", AccessType: "write"}, // duplicate
			{Resource: "payroll", AccessType: "read"},   // unknown, dropped
		},
	})

	perms, err := env.svc.ListForAdmin(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ListForAdmin: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("custom grant has %d rows, want 1", len(perms))
	}
	if perms[0].Resource != ResourceStudents || perms[0].AccessType != AccessWrite {
		t.Errorf("granted (%s, %s), want (students, write)", perms[0].Resource, perms[0].AccessType)
	}
}

func TestCreateAdminPrincipalHasNoAssignmentRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Grace", LastName: "Lindqvist", Email: "grace@riverside.edu", Role: "Head Teacher",
		Permissions: []PermissionRequest{{Resource: "students", AccessType: "read"}},
	})

	if !profile.IsPrincipal {
		t.Fatal("Head Teacher must derive principal standing")
	}
	perms, err := env.svc.ListForAdmin(ctx, profile.ID)
	if err != nil {
		t.Fatalf("ListForAdmin: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("principal has %d assignment rows, want 0", len(perms))
	}

	// A second principal at the same school is rejected.
	_, err = env.svc.CreateAdmin(ctx, env.schoolID, &CreateAdminRequest{
		FirstName: "Ivan", LastName: "Petrov", Email: "ivan@riverside.edu", Role: "Principal",
	})
	if !errors.Is(err, ErrPrincipalExists) {
		t.Fatalf("second principal: err = %v, want ErrPrincipalExists", err)
	}
}

func TestCreateAdminRejectsTeachingRole(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateAdmin(context.Background(), env.schoolID, &CreateAdminRequest{
		FirstName: "Lee", LastName: "Chen", Email: "lee@riverside.edu", Role: "Lead Instructor",
	})
	if !errors.Is(err, ErrInvalidAdministrativeRole) {
		t.Fatalf("err = %v, want ErrInvalidAdministrativeRole", err)
	}
}

func TestCreateAdminReusesExistingIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	existing := &user.User{
		ID: uuid.New(), Email: "pat@riverside.edu", FirstName: "Pat", LastName: "Nguyen",
		Role: user.RoleSchoolAdmin, Status: user.StatusActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	env.repo.users[existing.ID] = existing

	profile := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Pat", LastName: "Nguyen", Email: "pat@riverside.edu", Role: "Registrar",
	})

	if profile.UserID != existing.ID {
		t.Fatalf("profile.UserID = %s, want existing identity %s", profile.UserID, existing.ID)
	}
	if len(env.repo.users) != 1 {
		t.Fatalf("users = %d, want 1 (no duplicate identity)", len(env.repo.users))
	}
	if env.notifier.sent[0].tempPassword != "" {
		t.Error("welcome email for an existing identity must not carry a password")
	}

	// Same person cannot hold a second profile at the same school.
	_, err := env.svc.CreateAdmin(ctx, env.schoolID, &CreateAdminRequest{
		FirstName: "Pat", LastName: "Nguyen", Email: "pat@riverside.edu", Role: "Bursar",
	})
	if !errors.Is(err, ErrAlreadyAdministrator) {
		t.Fatalf("duplicate membership: err = %v, want ErrAlreadyAdministrator", err)
	}
}

func TestPromoteSwapsPrincipal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Grace", LastName: "Lindqvist", Email: "grace@riverside.edu", Role: "Principal",
	})
	target := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@riverside.edu", Role: "Registrar",
	})
	targetPerms, _ := env.svc.ListForAdmin(ctx, target.ID)
	env.notifier.sent = nil

	promoted, err := env.svc.Promote(ctx, env.schoolID, target.ID)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if promoted.Role != RolePrincipal || !promoted.IsPrincipal {
		t.Errorf("promoted = (%s, %v), want (Principal, true)", promoted.Role, promoted.IsPrincipal)
	}

	demoted, _ := env.svc.GetAdmin(ctx, env.schoolID, old.ID)
	if demoted.IsPrincipal || demoted.Role != RoleAdministrator {
		t.Errorf("demoted = (%s, %v), want (Administrator, false)", demoted.Role, demoted.IsPrincipal)
	}

	// Assignments of the promoted admin are untouched.
	after, _ := env.svc.ListForAdmin(ctx, target.ID)
	if len(after) != len(targetPerms) {
		t.Errorf("promotion changed assignment rows: %d -> %d", len(targetPerms), len(after))
	}

	kinds := map[string]string{}
	for _, n := range env.notifier.sent {
		kinds[n.kind] = n.to
	}
	if kinds["principal_promoted"] != "omar@riverside.edu" {
		t.Errorf("principal_promoted sent to %q", kinds["principal_promoted"])
	}
	if kinds["role_changed"] != "grace@riverside.edu" {
		t.Errorf("role_changed sent to %q", kinds["role_changed"])
	}
}

func TestPromoteIntoEmptySeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@riverside.edu", Role: "Registrar",
	})

	promoted, err := env.svc.Promote(ctx, env.schoolID, target.ID)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !promoted.IsPrincipal {
		t.Fatal("promotion into an empty seat must succeed")
	}
}

func TestPromoteGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	principal := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Grace", LastName: "Lindqvist", Email: "grace@riverside.edu", Role: "Principal",
	})

	if _, err := env.svc.Promote(ctx, env.schoolID, principal.ID); !errors.Is(err, ErrAlreadyPrincipal) {
		t.Errorf("promote principal: err = %v, want ErrAlreadyPrincipal", err)
	}
	if _, err := env.svc.Promote(ctx, env.schoolID, uuid.New()); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("promote unknown: err = %v, want ErrAdminNotFound", err)
	}
}

func TestDeletePrincipalGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	principal := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Grace", LastName: "Lindqvist", Email: "grace@riverside.edu", Role: "Principal",
	})

	// Active school, active account: removal refused.
	if err := env.svc.DeleteAdmin(ctx, env.schoolID, principal.ID); !errors.Is(err, ErrPrincipalActive) {
		t.Fatalf("active principal: err = %v, want ErrPrincipalActive", err)
	}

	// Deactivated school but no fallback administrator: still refused.
	env.schools.schools[env.schoolID].IsActive = false
	if err := env.svc.DeleteAdmin(ctx, env.schoolID, principal.ID); !errors.Is(err, ErrNoFallbackAdmin) {
		t.Fatalf("no fallback: err = %v, want ErrNoFallbackAdmin", err)
	}

	// With a fallback administrator the removal proceeds.
	env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@riverside.edu", Role: "Registrar",
	})
	if err := env.svc.DeleteAdmin(ctx, env.schoolID, principal.ID); err != nil {
		t.Fatalf("delete with fallback: %v", err)
	}
	if _, err := env.svc.GetAdmin(ctx, env.schoolID, principal.ID); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("deleted principal still resolvable: err = %v", err)
	}
}

func TestDeleteAdminRemovesOrphanIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Dana", LastName: "Okafor", Email: "dana@riverside.edu", Role: "Registrar",
	})
	userID := profile.UserID

	if err := env.svc.DeleteAdmin(ctx, env.schoolID, profile.ID); err != nil {
		t.Fatalf("DeleteAdmin: %v", err)
	}
	if _, ok := env.repo.users[userID]; ok {
		t.Error("identity with no remaining profile must be removed")
	}
}

func TestDeleteAdminKeepsSharedIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Dana", LastName: "Okafor", Email: "dana@riverside.edu", Role: "Registrar",
	})

	// The same person also teaches.
	env.repo.teachers[uuid.New()] = &TeacherProfile{
		ID: uuid.New(), UserID: profile.UserID, SchoolID: env.schoolID,
		FirstName: "Dana", LastName: "Okafor", Email: "dana@riverside.edu",
	}

	if err := env.svc.DeleteAdmin(ctx, env.schoolID, profile.ID); err != nil {
		t.Fatalf("DeleteAdmin: %v", err)
	}
	if _, ok := env.repo.users[profile.UserID]; !ok {
		t.Error("identity with a remaining teacher profile must be kept")
	}
}

func TestConvertTeacherToAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherUser := &user.User{
		ID: uuid.New(), Email: "noor@riverside.edu", FirstName: "Noor", LastName: "Rahman",
		Role: user.RoleTeacher, Status: user.StatusActive,
	}
	env.repo.users[teacherUser.ID] = teacherUser
	teacher := &TeacherProfile{
		ID: uuid.New(), UserID: teacherUser.ID, SchoolID: env.schoolID,
		FirstName: "Noor", LastName: "Rahman", Email: "noor@riverside.edu",
	}
	env.repo.teachers[teacher.ID] = teacher

	profile, err := env.svc.ConvertTeacherToAdmin(ctx, env.schoolID, &ConvertTeacherRequest{
		TeacherID: teacher.ID, Role: "Registrar",
	})
	if err != nil {
		t.Fatalf("ConvertTeacherToAdmin: %v", err)
	}

	if profile.UserID != teacherUser.ID || profile.Email != "noor@riverside.edu" {
		t.Error("converted profile must reuse the teacher's identity and contact fields")
	}
	if env.repo.users[teacherUser.ID].Role != user.RoleSchoolAdmin {
		t.Errorf("identity role = %s, want school_admin", env.repo.users[teacherUser.ID].Role)
	}
	if _, ok := env.repo.teachers[teacher.ID]; ok {
		t.Error("teacher profile must be removed when keep_as_teacher is false")
	}

	perms, _ := env.svc.ListForAdmin(ctx, profile.ID)
	if want := len(Resources()); len(perms) != want {
		t.Errorf("converted admin has %d grants, want default read set of %d", len(perms), want)
	}

	// Converting again is a conflict.
	env.repo.teachers[teacher.ID] = teacher
	_, err = env.svc.ConvertTeacherToAdmin(ctx, env.schoolID, &ConvertTeacherRequest{
		TeacherID: teacher.ID, Role: "Bursar",
	})
	if !errors.Is(err, ErrAlreadyAdministrator) {
		t.Fatalf("second conversion: err = %v, want ErrAlreadyAdministrator", err)
	}
}

func TestConvertTeacherKeepsDualRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherUser := &user.User{
		ID: uuid.New(), Email: "noor@riverside.edu", FirstName: "Noor", LastName: "Rahman",
		Role: user.RoleTeacher, Status: user.StatusActive,
	}
	env.repo.users[teacherUser.ID] = teacherUser
	teacher := &TeacherProfile{
		ID: uuid.New(), UserID: teacherUser.ID, SchoolID: env.schoolID,
		FirstName: "Noor", LastName: "Rahman", Email: "noor@riverside.edu",
	}
	env.repo.teachers[teacher.ID] = teacher

	_, err := env.svc.ConvertTeacherToAdmin(ctx, env.schoolID, &ConvertTeacherRequest{
		TeacherID: teacher.ID, Role: "Registrar", KeepAsTeacher: true,
	})
	if err != nil {
		t.Fatalf("ConvertTeacherToAdmin: %v", err)
	}
	if _, ok := env.repo.teachers[teacher.ID]; !ok {
		t.Error("teacher profile must survive when keep_as_teacher is true")
	}
}

func TestConvertUnknownTeacher(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ConvertTeacherToAdmin(context.Background(), env.schoolID, &ConvertTeacherRequest{
		TeacherID: uuid.New(), Role: "Registrar",
	})
	if !errors.Is(err, ErrTeacherNotFound) {
		t.Fatalf("err = %v, want ErrTeacherNotFound", err)
	}
}

func TestUpdateAdminRoleChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Grace", LastName: "Lindqvist", Email: "grace@riverside.edu", Role: "Principal",
	})
	admin := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@riverside.edu", Role: "Registrar",
	})
	env.notifier.sent = nil

	teaching := "Classroom Teacher"
	if _, err := env.svc.UpdateAdmin(ctx, env.schoolID, admin.ID, &UpdateAdminRequest{Role: &teaching}); !errors.Is(err, ErrInvalidAdministrativeRole) {
		t.Errorf("teaching role: err = %v, want ErrInvalidAdministrativeRole", err)
	}

	principal := "Principal"
	if _, err := env.svc.UpdateAdmin(ctx, env.schoolID, admin.ID, &UpdateAdminRequest{Role: &principal}); !errors.Is(err, ErrPrincipalExists) {
		t.Errorf("second principal via update: err = %v, want ErrPrincipalExists", err)
	}

	bursar := "Bursar"
	updated, err := env.svc.UpdateAdmin(ctx, env.schoolID, admin.ID, &UpdateAdminRequest{Role: &bursar})
	if err != nil {
		t.Fatalf("UpdateAdmin: %v", err)
	}
	if updated.Role != "Bursar" || updated.IsPrincipal {
		t.Errorf("updated = (%s, %v), want (Bursar, false)", updated.Role, updated.IsPrincipal)
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].kind != "role_changed" {
		t.Errorf("notifications = %+v, want one role_changed", env.notifier.sent)
	}
}

func TestAssignCustomIsSetLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@riverside.edu", Role: "Registrar",
		Permissions: []PermissionRequest{{Resource: "grades", AccessType: "read"}},
	})

	// Re-assigning the same tuple plus one new one grows the set by one.
	err := env.svc.AssignCustom(ctx, admin.ID, []PermissionRequest{
		{Resource: "grades", AccessType: "read"},
		{Resource: "grades", AccessType: "write"},
	})
	if err != nil {
		t.Fatalf("AssignCustom: %v", err)
	}

	perms, _ := env.svc.ListForAdmin(ctx, admin.ID)
	if len(perms) != 2 {
		t.Fatalf("assignment set has %d rows, want 2", len(perms))
	}

	// An all-unknown request is a silent no-op.
	if err := env.svc.AssignCustom(ctx, admin.ID, []PermissionRequest{{Resource: "payroll", AccessType: "read"}}); err != nil {
		t.Fatalf("unknown-only AssignCustom: %v", err)
	}
	perms, _ = env.svc.ListForAdmin(ctx, admin.ID)
	if len(perms) != 2 {
		t.Fatalf("unknown tuples must not change the set, got %d rows", len(perms))
	}
}

func TestCreateAdminGrantFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.repo.assignErr = errors.New("storage down")
	_, err := env.svc.CreateAdmin(ctx, env.schoolID, &CreateAdminRequest{
		FirstName: "Dana", LastName: "Okafor", Email: "dana@riverside.edu", Role: "Registrar",
	})
	if err == nil {
		t.Fatal("expected the grant failure to surface")
	}

	// Profile, identity, and grants commit together; a failed grant write
	// must leave none of them behind.
	profiles, _ := env.svc.ListAdmins(ctx, env.schoolID)
	if len(profiles) != 0 {
		t.Fatalf("failed creation left %d committed profile(s) behind", len(profiles))
	}
	if len(env.repo.users) != 0 {
		t.Fatalf("failed creation left %d identity account(s) behind", len(env.repo.users))
	}
	if len(env.notifier.sent) != 0 {
		t.Error("no notification may go out for a failed creation")
	}
}

func TestConvertTeacherGrantFailureLeavesTeacherIntact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherUser := &user.User{
		ID: uuid.New(), Email: "noor@riverside.edu", FirstName: "Noor", LastName: "Rahman",
		Role: user.RoleTeacher, Status: user.StatusActive,
	}
	env.repo.users[teacherUser.ID] = teacherUser
	teacher := &TeacherProfile{
		ID: uuid.New(), UserID: teacherUser.ID, SchoolID: env.schoolID,
		FirstName: "Noor", LastName: "Rahman", Email: "noor@riverside.edu",
	}
	env.repo.teachers[teacher.ID] = teacher

	env.repo.assignErr = errors.New("storage down")
	_, err := env.svc.ConvertTeacherToAdmin(ctx, env.schoolID, &ConvertTeacherRequest{
		TeacherID: teacher.ID, Role: "Registrar",
	})
	if err == nil {
		t.Fatal("expected the grant failure to surface")
	}

	if _, ok := env.repo.teachers[teacher.ID]; !ok {
		t.Error("teacher profile must survive a failed conversion")
	}
	if env.repo.users[teacherUser.ID].Role != user.RoleTeacher {
		t.Error("account role must not flip on a failed conversion")
	}
	profiles, _ := env.svc.ListAdmins(ctx, env.schoolID)
	if len(profiles) != 0 {
		t.Fatalf("failed conversion left %d committed profile(s) behind", len(profiles))
	}
}

func TestMyAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createAdmin(t, &CreateAdminRequest{
		FirstName: "Dana", LastName: "Okafor", Email: "dana@riverside.edu", Role: "Registrar",
	})

	profile, perms, sch, err := env.svc.MyAccess(ctx, admin.UserID, env.schoolID)
	if err != nil {
		t.Fatalf("MyAccess: %v", err)
	}
	if profile.ID != admin.ID {
		t.Error("MyAccess resolved the wrong profile")
	}
	if len(perms) != len(Resources()) {
		t.Errorf("MyAccess returned %d grants, want %d", len(perms), len(Resources()))
	}
	if sch.Name != "Riverside High" {
		t.Errorf("school = %q", sch.Name)
	}

	if _, _, _, err := env.svc.MyAccess(ctx, uuid.New(), env.schoolID); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("unknown caller: err = %v, want ErrProfileNotFound", err)
	}
}
