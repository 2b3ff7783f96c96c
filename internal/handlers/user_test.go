package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

func TestUserHandler_InviteListRemove(t *testing.T) {
	env := setupTestEnv(t, services.Options{})
	admin := env.register(t, "Acme", "admin@example.com")

	member := env.invite(t, admin.Token, "member@example.com")
	require.Equal(t, models.RoleUser, member.Role)

	w := env.do(t, http.MethodGet, "/api/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []dto.MemberDTO
	decodeData(t, w, &members)
	require.Len(t, members, 2)

	memberToken := env.login(t, "acme", "member@example.com").Token
	w = env.do(t, http.MethodGet, "/api/users", memberToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/users/"+admin.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_OPERATION", decodeEnvelope(t, w).Code)

	w = env.do(t, http.MethodDelete, "/api/users/"+member.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/users", admin.Token, nil)
	decodeData(t, w, &members)
	require.Len(t, members, 1)
}

func TestUserHandler_InviteDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t, services.Options{})
	admin := env.register(t, "Acme", "admin@example.com")

	w := env.do(t, http.MethodPost, "/api/users", admin.Token, map[string]string{
		"name":     "Dup",
		"email":    "ADMIN@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusConflict, w.Code)
}
