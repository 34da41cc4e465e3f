package services

import (
	"errors"
	"time"

	"github.com/yukikurage/team-todo-api/internal/models"
)

func (s *ServiceTestSuite) newBareTask(creator *models.User) *models.Task {
	task := &models.Task{Title: "Reconcile me", CreatorID: creator.ID}
	s.Require().NoError(s.taskRepo.Create(s.ctx, task))
	return task
}

func (s *ServiceTestSuite) TestReconcile_DeletionsAreIdempotent() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)
	task := s.newBareTask(manager)

	reconciler := NewAssignmentReconciler(s.clock)
	_, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, []AssignmentDelta{{UserID: u1.ID}, {UserID: u2.ID}}, manager.ID)
	s.Require().NoError(err)

	target := s.assignmentFor(task.ID, u1.ID)
	batch := []AssignmentDelta{{AssignmentID: &target.ID, UserID: u1.ID, ToDelete: true}}

	first, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, batch, manager.ID)
	s.Require().NoError(err)
	s.Len(first.Removed, 1)

	second, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, batch, manager.ID)
	s.Require().NoError(err)
	s.Empty(second.Removed)

	s.Equal([]uint64{u2.ID}, s.assigneesOf(task.ID))
}

func (s *ServiceTestSuite) TestReconcile_InsertionsAreNotIdempotent() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.newBareTask(manager)

	reconciler := NewAssignmentReconciler(s.clock)
	zero := uint64(0)
	batch := []AssignmentDelta{{AssignmentID: &zero, UserID: u1.ID}}

	_, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, batch, manager.ID)
	s.Require().NoError(err)
	_, err = reconciler.Reconcile(s.ctx, s.taskRepo, task, batch, manager.ID)
	s.Require().NoError(err)

	s.Equal([]uint64{u1.ID, u1.ID}, s.assigneesOf(task.ID))

	row := s.assignmentFor(task.ID, u1.ID)
	s.Require().NotNil(row.AssignedBy)
	s.Equal(manager.ID, *row.AssignedBy)
	s.WithinDuration(s.clock.Now(), row.AssignedAt, time.Second)
}

func (s *ServiceTestSuite) TestReconcile_MissingUsersLeaveTableUnchanged() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)
	gone := s.createUser("gone", models.RolePerformer, manager)
	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, gone.ID))

	task := s.newBareTask(manager)
	reconciler := NewAssignmentReconciler(s.clock)
	_, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, []AssignmentDelta{{UserID: u1.ID}}, manager.ID)
	s.Require().NoError(err)

	existing := s.assignmentFor(task.ID, u1.ID)
	_, err = reconciler.Reconcile(s.ctx, s.taskRepo, task, []AssignmentDelta{
		{AssignmentID: &existing.ID, UserID: u1.ID, ToDelete: true},
		{UserID: u2.ID},
		{UserID: 999},
		{UserID: gone.ID},
		{UserID: 999},
	}, manager.ID)

	s.Require().Error(err)
	s.True(errors.Is(err, ErrAssigneeNotFound))

	var missing *MissingUsersError
	s.Require().ErrorAs(err, &missing)
	s.ElementsMatch([]uint64{999, gone.ID}, missing.IDs)

	s.Equal([]uint64{u1.ID}, s.assigneesOf(task.ID))
}

func (s *ServiceTestSuite) TestReconcile_IgnoresUnmatchedDeltas() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.newBareTask(manager)

	reconciler := NewAssignmentReconciler(s.clock)
	_, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, []AssignmentDelta{{UserID: u1.ID}}, manager.ID)
	s.Require().NoError(err)

	existing := s.assignmentFor(task.ID, u1.ID)
	result, err := reconciler.Reconcile(s.ctx, s.taskRepo, task, []AssignmentDelta{
		// deletion without an id
		{UserID: u1.ID, ToDelete: true},
		// id without the delete flag
		{AssignmentID: &existing.ID, UserID: 999},
	}, manager.ID)
	s.Require().NoError(err)
	s.Empty(result.Removed)
	s.Empty(result.Added)

	result, err = reconciler.Reconcile(s.ctx, s.taskRepo, task, nil, manager.ID)
	s.Require().NoError(err)
	s.Empty(result.Added)

	s.Equal([]uint64{u1.ID}, s.assigneesOf(task.ID))
}

func (s *ServiceTestSuite) TestReconcile_DeletionScopedToTask() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	first := s.newBareTask(manager)
	second := s.newBareTask(manager)

	reconciler := NewAssignmentReconciler(s.clock)
	_, err := reconciler.Reconcile(s.ctx, s.taskRepo, first, []AssignmentDelta{{UserID: u1.ID}}, manager.ID)
	s.Require().NoError(err)

	foreign := s.assignmentFor(first.ID, u1.ID)
	result, err := reconciler.Reconcile(s.ctx, s.taskRepo, second, []AssignmentDelta{
		{AssignmentID: &foreign.ID, UserID: u1.ID, ToDelete: true},
	}, manager.ID)
	s.Require().NoError(err)
	s.Empty(result.Removed)

	s.Equal([]uint64{u1.ID}, s.assigneesOf(first.ID))
}
