package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
)

type fakeGenerator struct {
	tasks []GeneratedTask
	err   error
}

func (g *fakeGenerator) GenerateTasksFromText(_ context.Context, _ string) ([]GeneratedTask, error) {
	return g.tasks, g.err
}

func setupProject(t *testing.T, svc *Services) (*AuthResult, *TenantContext, *models.Project) {
	t.Helper()
	acme := registerTenant(t, svc, "Acme", "admin@example.com")
	tc := tenantContextFor(t, svc, acme.User, acme.Tenant.ID)

	project, err := svc.Projects.Create(context.Background(), tc, CreateProjectInput{Name: "Website"})
	require.NoError(t, err)
	return acme, tc, project
}

func TestTaskService_TenantIsolation(t *testing.T) {
	svc, _ := newTestServices(t, Options{})
	ctx := context.Background()
	_, tc, project := setupProject(t, svc)

	task, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{ProjectID: project.ID, Title: "Design"})
	require.NoError(t, err)
	require.Equal(t, tc.TenantID, task.TenantID)

	globex := registerTenant(t, svc, "Globex", "other@example.com")
	other := tenantContextFor(t, svc, globex.User, globex.Tenant.ID)

	_, err = svc.Tasks.Get(ctx, other, task.ID)
	requireKind(t, err, apierrors.KindNotFound)

	err = svc.Tasks.Delete(ctx, other, task.ID)
	requireKind(t, err, apierrors.KindNotFound)

	_, err = svc.Projects.Get(ctx, other, project.ID)
	requireKind(t, err, apierrors.KindNotFound)

	page, err := svc.Tasks.List(ctx, other, ListTasksInput{})
	require.NoError(t, err)
	require.Empty(t, page.Tasks)
}

func TestTaskService_AssignmentGuard(t *testing.T) {
	svc, _ := newTestServices(t, Options{})
	ctx := context.Background()
	_, tc, project := setupProject(t, svc)
	outsider := registerTenant(t, svc, "Globex", "outsider@example.com")

	_, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Design",
		AssignedTo: &outsider.User.ID,
	})
	requireKind(t, err, apierrors.KindValidation)

	task, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{ProjectID: project.ID, Title: "Design"})
	require.NoError(t, err)

	_, err = svc.Tasks.Update(ctx, tc, task.ID, UpdateTaskInput{AssignedTo: &outsider.User.ID})
	requireKind(t, err, apierrors.KindValidation)
}

// detachingGenerator removes the assignee from the tenant while generating.
type detachingGenerator struct {
	detach func()
}

func (g *detachingGenerator) GenerateTasksFromText(_ context.Context, _ string) ([]GeneratedTask, error) {
	g.detach()
	return []GeneratedTask{{Title: "Follow up"}}, nil
}

func TestTaskService_AssignmentRecheckedInsideScope(t *testing.T) {
	gen := &detachingGenerator{}
	svc, store := newTestServices(t, Options{Generator: gen})
	ctx := context.Background()
	acme, tc, project := setupProject(t, svc)

	member, err := svc.Memberships.CreateMember(ctx, acme.Tenant.ID, CreateMemberInput{
		Name:     "Member",
		Email:    "member@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	gen.detach = func() {
		_, err := svc.Memberships.Detach(ctx, acme.Tenant.ID, member.UserID)
		require.NoError(t, err)
	}

	_, err = svc.Tasks.Generate(ctx, tc, project.ID, GenerateTasksInput{Text: "notes", AssignedTo: &member.UserID})
	requireKind(t, err, apierrors.KindValidation)

	page, err := svc.Tasks.List(ctx, tc, ListTasksInput{})
	require.NoError(t, err)
	require.Empty(t, page.Tasks)

	// a former member is no longer assignable on update either
	task, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{ProjectID: project.ID, Title: "Design"})
	require.NoError(t, err)
	_, err = svc.Tasks.Update(ctx, tc, task.ID, UpdateTaskInput{AssignedTo: &member.UserID})
	requireKind(t, err, apierrors.KindValidation)

	reloaded, err := store.Scoped(tc.TenantID).Tasks().FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.AssignedTo)
}

func TestTaskService_MemberRestrictions(t *testing.T) {
	svc, _ := newTestServices(t, Options{})
	ctx := context.Background()
	acme, tc, project := setupProject(t, svc)

	member, err := svc.Memberships.CreateMember(ctx, acme.Tenant.ID, CreateMemberInput{
		Name:     "Member",
		Email:    "member@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	memberTC := tenantContextFor(t, svc, &member.User, acme.Tenant.ID)

	mine, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{ProjectID: project.ID, Title: "Mine", AssignedTo: &member.UserID})
	require.NoError(t, err)
	theirs, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{ProjectID: project.ID, Title: "Theirs"})
	require.NoError(t, err)

	_, err = svc.Tasks.Create(ctx, memberTC, CreateTaskInput{ProjectID: project.ID, Title: "Nope"})
	require.ErrorIs(t, err, apierrors.ErrAdminRequired)

	_, err = svc.Tasks.Get(ctx, memberTC, theirs.ID)
	require.ErrorIs(t, err, ErrTaskNotAssigned)

	status := "in_progress"
	updated, err := svc.Tasks.Update(ctx, memberTC, mine.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusInProgress, updated.Status)

	title := "Renamed"
	_, err = svc.Tasks.Update(ctx, memberTC, mine.ID, UpdateTaskInput{Title: &title})
	require.ErrorIs(t, err, ErrStatusOnlyUpdate)

	page, err := svc.Tasks.List(ctx, memberTC, ListTasksInput{})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	require.Equal(t, mine.ID, page.Tasks[0].ID)

	projects, err := svc.Projects.List(ctx, memberTC)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Len(t, projects[0].Tasks, 1)
}

func TestTaskService_UpdateClearsDueDate(t *testing.T) {
	svc, _ := newTestServices(t, Options{})
	ctx := context.Background()
	_, tc, project := setupProject(t, svc)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	task, err := svc.Tasks.Create(ctx, tc, CreateTaskInput{ProjectID: project.ID, Title: "Design", DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)

	updated, err := svc.Tasks.Update(ctx, tc, task.ID, UpdateTaskInput{ClearDueDate: true})
	require.NoError(t, err)
	require.Nil(t, updated.DueDate)
}

func TestTaskService_Generate(t *testing.T) {
	generated := []GeneratedTask{{Title: ""}}
	past := time.Now().Add(-72 * time.Hour)
	generated = append(generated, GeneratedTask{Title: "Stale", DueDate: &past})
	for i := 0; i < constants.MaxAIGeneratedTasks+5; i++ {
		generated = append(generated, GeneratedTask{Title: fmt.Sprintf("Task %d", i)})
	}

	svc, _ := newTestServices(t, Options{Generator: &fakeGenerator{tasks: generated}})
	ctx := context.Background()
	_, tc, project := setupProject(t, svc)

	tasks, err := svc.Tasks.Generate(ctx, tc, project.ID, GenerateTasksInput{Text: "plan the launch"})
	require.NoError(t, err)
	require.Len(t, tasks, constants.MaxAIGeneratedTasks)
	require.Equal(t, "Stale", tasks[0].Title)
	require.Nil(t, tasks[0].DueDate)

	_, err = svc.Tasks.Generate(ctx, tc, "missing", GenerateTasksInput{Text: "plan the launch"})
	requireKind(t, err, apierrors.KindNotFound)
}

func TestTaskService_GenerateFailures(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestServices(t, Options{})
	_, tc, project := setupProject(t, svc)
	_, err := svc.Tasks.Generate(ctx, tc, project.ID, GenerateTasksInput{Text: "x"})
	require.ErrorIs(t, err, ErrAIServiceNotConfigured)

	svc, _ = newTestServices(t, Options{Generator: &fakeGenerator{tasks: []GeneratedTask{{Title: " "}}}})
	_, tc, project = setupProject(t, svc)
	_, err = svc.Tasks.Generate(ctx, tc, project.ID, GenerateTasksInput{Text: "x"})
	require.ErrorIs(t, err, ErrAINoTasksGenerated)

	svc, _ = newTestServices(t, Options{Generator: &fakeGenerator{err: errors.New("upstream down")}})
	_, tc, project = setupProject(t, svc)
	_, err = svc.Tasks.Generate(ctx, tc, project.ID, GenerateTasksInput{Text: "x"})
	requireKind(t, err, apierrors.KindUnexpected)
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `[{"title":"a"}]`, stripCodeFence("```json\n[{\"title\":\"a\"}]\n```"))
	require.Equal(t, `[]`, stripCodeFence(" [] "))
}

func TestParseGeneratedTasks(t *testing.T) {
	tasks, err := parseGeneratedTasks(`{"tasks": [{"title": "Write docs", "due_date": null}]}`)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Write docs", tasks[0].Title)
	require.Nil(t, tasks[0].DueDate)

	tasks, err = parseGeneratedTasks("```json\n[{\"title\":\"a\"},{\"title\":\"b\"}]\n```")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	tasks, err = parseGeneratedTasks(`{"tasks": []}`)
	require.NoError(t, err)
	require.Empty(t, tasks)

	_, err = parseGeneratedTasks("not json")
	require.Error(t, err)
}
