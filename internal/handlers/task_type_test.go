package handlers

import (
	"fmt"
	"net/http"

	"github.com/yukikurage/team-todo-api/internal/dto"
	"github.com/yukikurage/team-todo-api/internal/models"
)

func (s *HandlerTestSuite) TestTaskTypes() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	performer := s.createUser("performer", models.RolePerformer, admin)
	adminToken := s.tokenFor(admin)
	performerToken := s.tokenFor(performer)

	w := s.do(http.MethodPost, "/api/task-types", dto.TaskTypeRequest{Name: "  Bug  "}, adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var bug dto.TaskTypeDTO
	s.decode(w, &bug)
	s.Equal("Bug", bug.Name)
	s.True(bug.IsAccessible)

	w = s.do(http.MethodPost, "/api/task-types", dto.TaskTypeRequest{Name: "bug"}, adminToken)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/task-types", dto.TaskTypeRequest{Name: "Feature"}, performerToken)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/task-types/%d", bug.ID), dto.TaskTypeRequest{Name: "Defect"}, adminToken)
	s.Require().Equal(http.StatusOK, w.Code)

	hidden := false
	w = s.do(http.MethodPatch, fmt.Sprintf("/api/task-types/%d/access", bug.ID), dto.TaskTypeAccessRequest{IsAccessible: &hidden}, adminToken)
	s.Require().Equal(http.StatusOK, w.Code)

	var list struct {
		TaskTypes []dto.TaskTypeDTO `json:"task_types"`
	}
	w = s.do(http.MethodGet, "/api/task-types", nil, performerToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &list)
	s.Empty(list.TaskTypes)

	w = s.do(http.MethodGet, "/api/task-types", nil, adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &list)
	s.Require().Len(list.TaskTypes, 1)
	s.Equal("Defect", list.TaskTypes[0].Name)
	s.False(list.TaskTypes[0].IsAccessible)

	w = s.do(http.MethodPut, "/api/task-types/999", dto.TaskTypeRequest{Name: "Ghost"}, adminToken)
	s.Equal(http.StatusNotFound, w.Code)
}
