package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

type stubGenerator struct {
	tasks []services.GeneratedTask
}

func (g *stubGenerator) GenerateTasksFromText(_ context.Context, _ string) ([]services.GeneratedTask, error) {
	return g.tasks, nil
}

// TaskHandlerTestSuite defines the test suite for project and task routes
type TaskHandlerTestSuite struct {
	suite.Suite
	env *testEnv

	admin       dto.AuthResponse
	member      dto.MemberDTO
	memberToken string
	project     dto.ProjectDTO
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	t := suite.T()
	suite.env = setupTestEnv(t, services.Options{
		Generator: &stubGenerator{tasks: []services.GeneratedTask{
			{Title: "Write outline", Description: "First draft"},
			{Title: "  "},
			{Title: "Review outline"},
		}},
	})

	suite.admin = suite.env.register(t, "Acme", "admin@example.com")
	suite.member = suite.env.invite(t, suite.admin.Token, "member@example.com")
	suite.memberToken = suite.env.login(t, "acme", "member@example.com").Token
	suite.project = suite.createProject("Website")
}

func (suite *TaskHandlerTestSuite) createProject(name string) dto.ProjectDTO {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/projects", suite.admin.Token, gin.H{"name": name})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var project dto.ProjectDTO
	decodeData(suite.T(), w, &project)
	return project
}

func (suite *TaskHandlerTestSuite) createTask(projectID, title string, assignedTo *string) dto.TaskDTO {
	body := gin.H{"project_id": projectID, "title": title}
	if assignedTo != nil {
		body["assigned_to"] = *assignedTo
	}
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", suite.admin.Token, body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	decodeData(suite.T(), w, &task)
	return task
}

func (suite *TaskHandlerTestSuite) listTasks(token, query string) dto.TaskListResponse {
	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks"+query, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var list dto.TaskListResponse
	decodeData(suite.T(), w, &list)
	return list
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Defaults() {
	task := suite.createTask(suite.project.ID, "Design", &suite.member.User.ID)

	suite.Equal(suite.admin.Tenant.ID, task.TenantID)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Require().NotNil(task.AssignedUser)
	suite.Equal(suite.member.User.ID, task.AssignedUser.ID)
	suite.Require().NotNil(task.Project)
	suite.Equal("Website", task.Project.Name)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RequiresAdmin() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", suite.memberToken, gin.H{
		"project_id": suite.project.ID,
		"title":      "Sneaky",
	})
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("INSUFFICIENT_PERMISSIONS", decodeEnvelope(suite.T(), w).Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RejectsNonMemberAssignee() {
	outsider := suite.env.register(suite.T(), "Globex", "outsider@example.com")

	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", suite.admin.Token, gin.H{
		"project_id":  suite.project.ID,
		"title":       "Design",
		"assigned_to": outsider.User.ID,
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(decodeEnvelope(suite.T(), w).Errors, "assigned_to")
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RejectsForeignProject() {
	outsider := suite.env.register(suite.T(), "Globex", "outsider@example.com")
	w := suite.env.do(suite.T(), http.MethodPost, "/api/projects", outsider.Token, gin.H{"name": "Secret"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var foreign dto.ProjectDTO
	decodeData(suite.T(), w, &foreign)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks", suite.admin.Token, gin.H{
		"project_id": foreign.ID,
		"title":      "Design",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(decodeEnvelope(suite.T(), w).Errors, "project_id")
}

func (suite *TaskHandlerTestSuite) TestListTasks_MemberSeesOwnTasks() {
	mine := suite.createTask(suite.project.ID, "Mine", &suite.member.User.ID)
	suite.createTask(suite.project.ID, "Unassigned", nil)

	list := suite.listTasks(suite.memberToken, "")
	suite.Equal(int64(1), list.Pagination.Total)
	suite.Require().Len(list.Tasks, 1)
	suite.Equal(mine.ID, list.Tasks[0].ID)

	list = suite.listTasks(suite.admin.Token, "")
	suite.Equal(int64(2), list.Pagination.Total)
}

func (suite *TaskHandlerTestSuite) TestListTasks_FiltersAndPagination() {
	for i := 0; i < 5; i++ {
		suite.createTask(suite.project.ID, fmt.Sprintf("Task %d", i), nil)
	}
	other := suite.createProject("Mobile")
	suite.createTask(other.ID, "Elsewhere", nil)

	list := suite.listTasks(suite.admin.Token, "?project_id="+suite.project.ID+"&limit=2&page=3")
	suite.Equal(int64(5), list.Pagination.Total)
	suite.Equal(3, list.Pagination.TotalPages)
	suite.Len(list.Tasks, 1)

	list = suite.listTasks(suite.admin.Token, "?status=done")
	suite.Equal(int64(0), list.Pagination.Total)

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks?priority=urgent", suite.admin.Token, nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGetTask_AssigneeOnly() {
	mine := suite.createTask(suite.project.ID, "Mine", &suite.member.User.ID)
	other := suite.createTask(suite.project.ID, "Other", nil)

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+mine.ID, suite.memberToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+other.ID, suite.memberToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_AssigneeStatusOnly() {
	mine := suite.createTask(suite.project.ID, "Mine", &suite.member.User.ID)

	w := suite.env.do(suite.T(), http.MethodPut, "/api/tasks/"+mine.ID, suite.memberToken, gin.H{"status": "done"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	decodeData(suite.T(), w, &updated)
	suite.Equal(models.TaskStatusDone, updated.Status)
	suite.Equal("Mine", updated.Title)

	w = suite.env.do(suite.T(), http.MethodPut, "/api/tasks/"+mine.ID, suite.memberToken, gin.H{"title": "Renamed"})
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_AdminReassignsAndClears() {
	task := suite.createTask(suite.project.ID, "Design", &suite.member.User.ID)

	w := suite.env.do(suite.T(), http.MethodPut, "/api/tasks/"+task.ID, suite.admin.Token, gin.H{
		"title":       "Design v2",
		"priority":    "high",
		"assigned_to": "",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	decodeData(suite.T(), w, &updated)
	suite.Equal("Design v2", updated.Title)
	suite.Equal(models.TaskPriorityHigh, updated.Priority)
	suite.Nil(updated.AssignedTo)
	suite.Nil(updated.AssignedUser)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	task := suite.createTask(suite.project.ID, "Design", nil)

	w := suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+task.ID, suite.memberToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+task.ID, suite.admin.Token, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+task.ID, suite.admin.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestTenantIsolation() {
	task := suite.createTask(suite.project.ID, "Design", nil)
	outsider := suite.env.register(suite.T(), "Globex", "outsider@example.com")

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+task.ID, outsider.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodPut, "/api/tasks/"+task.ID, outsider.Token, gin.H{"title": "Mine now"})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/projects/"+suite.project.ID, outsider.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	list := suite.listTasks(outsider.Token, "")
	suite.Empty(list.Tasks)
}

func (suite *TaskHandlerTestSuite) TestProjects_MemberVisibility() {
	suite.createTask(suite.project.ID, "Mine", &suite.member.User.ID)
	suite.createTask(suite.project.ID, "Someone else's", nil)
	hidden := suite.createProject("Hidden")

	w := suite.env.do(suite.T(), http.MethodGet, "/api/projects", suite.memberToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var projects []dto.ProjectDTO
	decodeData(suite.T(), w, &projects)
	suite.Require().Len(projects, 1)
	suite.Equal(suite.project.ID, projects[0].ID)
	suite.Len(projects[0].Tasks, 1)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/projects/"+hidden.ID, suite.memberToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/projects", suite.admin.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	decodeData(suite.T(), w, &projects)
	suite.Len(projects, 2)
}

func (suite *TaskHandlerTestSuite) TestProjects_AdminLifecycle() {
	w := suite.env.do(suite.T(), http.MethodPut, "/api/projects/"+suite.project.ID, suite.admin.Token, gin.H{
		"name":   "Website v2",
		"status": "completed",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.ProjectDTO
	decodeData(suite.T(), w, &updated)
	suite.Equal("Website v2", updated.Name)
	suite.Equal(models.ProjectStatusCompleted, updated.Status)

	w = suite.env.do(suite.T(), http.MethodPut, "/api/projects/"+suite.project.ID, suite.memberToken, gin.H{"name": "x"})
	suite.Equal(http.StatusForbidden, w.Code)

	task := suite.createTask(suite.project.ID, "Design", nil)
	w = suite.env.do(suite.T(), http.MethodDelete, "/api/projects/"+suite.project.ID, suite.admin.Token, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.env.do(suite.T(), http.MethodGet, "/api/tasks/"+task.ID, suite.admin.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGenerateTasks() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/projects/"+suite.project.ID+"/tasks/generate", suite.admin.Token, gin.H{
		"text":        "Write and review the outline",
		"assigned_to": suite.member.User.ID,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Tasks []dto.TaskDTO `json:"tasks"`
		Count int           `json:"count"`
	}
	decodeData(suite.T(), w, &result)
	suite.Equal(2, result.Count)
	for _, task := range result.Tasks {
		suite.Equal(suite.project.ID, task.ProjectID)
		suite.Require().NotNil(task.AssignedTo)
		suite.Equal(suite.member.User.ID, *task.AssignedTo)
	}

	w = suite.env.do(suite.T(), http.MethodPost, "/api/projects/"+suite.project.ID+"/tasks/generate", suite.memberToken, gin.H{"text": "x"})
	suite.Equal(http.StatusForbidden, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}

func TestGenerateTasks_NotConfigured(t *testing.T) {
	env := setupTestEnv(t, services.Options{})
	admin := env.register(t, "Acme", "admin@example.com")

	w := env.do(t, http.MethodPost, "/api/projects", admin.Token, gin.H{"name": "Website"})
	var project dto.ProjectDTO
	decodeData(t, w, &project)

	w = env.do(t, http.MethodPost, "/api/projects/"+project.ID+"/tasks/generate", admin.Token, gin.H{"text": "do things"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Equal(t, "SERVICE_UNAVAILABLE", decodeEnvelope(t, w).Code)
}
