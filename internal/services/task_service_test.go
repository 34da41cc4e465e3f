package services

import (
	"errors"
	"time"

	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/notify"
	"github.com/yukikurage/team-todo-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func (s *ServiceTestSuite) TestCreateTask() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)

	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	task, err := s.tasks.CreateTask(s.ctx, CreateTaskInput{
		Title:       "  Prepare report  ",
		Description: "Quarterly numbers",
		DueDate:     &due,
		DueTime:     strPtr("17:30"),
		IsImportant: true,
	}, []AssignmentDelta{{UserID: u1.ID}, {UserID: u2.ID}}, actorOf(manager))
	s.Require().NoError(err)

	s.Equal("Prepare report", task.Title)
	s.Equal(manager.ID, task.CreatorID)
	s.Equal(uint64(1), task.Version)
	s.False(task.Status)
	s.Nil(task.CompletedAt)
	s.ElementsMatch([]uint64{u1.ID, u2.ID}, task.AssigneeIDs())

	last := s.notifier.last()
	s.Equal(notify.EventCreated, last.Event)
	s.Equal("Prepare report", last.Subject)
	s.ElementsMatch([]uint64{u1.ID, u2.ID}, last.Users)
	s.Equal(1, s.metrics.count(metrics.TaskCreated))
}

func (s *ServiceTestSuite) TestCreateTask_Validation() {
	manager := s.createUser("manager", models.RoleManager, nil)
	performer := s.createUser("performer", models.RolePerformer, manager)

	_, err := s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "   "}, nil, actorOf(manager))
	s.ErrorIs(err, ErrTitleRequired)

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'x'
	}
	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: string(long)}, nil, actorOf(manager))
	s.ErrorIs(err, ErrTitleTooLong)

	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "t", DueTime: strPtr("25:99")}, nil, actorOf(manager))
	s.ErrorIs(err, ErrInvalidDueTime)

	unknownType := uint64(42)
	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "t", TypeID: &unknownType}, nil, actorOf(manager))
	s.ErrorIs(err, ErrUnknownTaskType)

	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "t"}, nil, actorOf(performer))
	s.ErrorIs(err, ErrRoleNotAllowed)

	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "t"}, []AssignmentDelta{{UserID: 999}}, actorOf(manager))
	s.ErrorIs(err, ErrAssigneeNotFound)

	var count int64
	s.Require().NoError(s.db.Model(&models.Task{}).Count(&count).Error)
	s.Zero(count)
	s.Empty(s.notifier.events())
}

func (s *ServiceTestSuite) TestUpdateTask_NotifiesPreviousAndNewAssignees() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)
	u3 := s.createUser("u3", models.RolePerformer, manager)
	task := s.createTask("Shared task", manager, u1, u2)

	removed := s.assignmentFor(task.ID, u1.ID)
	updated, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{}, []AssignmentDelta{
		{AssignmentID: &removed.ID, UserID: u1.ID, ToDelete: true},
		{UserID: u3.ID},
	}, actorOf(manager))
	s.Require().NoError(err)

	s.ElementsMatch([]uint64{u2.ID, u3.ID}, updated.AssigneeIDs())
	s.Equal(task.Version+1, updated.Version)

	last := s.notifier.last()
	s.Equal(notify.EventUpdated, last.Event)
	s.ElementsMatch([]uint64{u1.ID, u2.ID, u3.ID}, last.Users)
}

func (s *ServiceTestSuite) TestUpdateTask_PatchesFields() {
	manager := s.createUser("manager", models.RoleManager, nil)
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	task, err := s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "Draft", DueDate: &due, DueTime: strPtr("09:00")}, nil, actorOf(manager))
	s.Require().NoError(err)

	updated, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{
		Title:        strPtr("Final"),
		IsImportant:  boolPtr(true),
		ClearDueTime: true,
	}, nil, actorOf(manager))
	s.Require().NoError(err)

	s.Equal("Final", updated.Title)
	s.True(updated.IsImportant)
	s.Nil(updated.DueTime)
	s.Require().NotNil(updated.DueDate)
	s.True(updated.DueDate.Equal(due))
}

func (s *ServiceTestSuite) TestUpdateTask_MissingAssigneeRollsBack() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Original", manager, u1)
	before := len(s.notifier.events())

	existing := s.assignmentFor(task.ID, u1.ID)
	_, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Title: strPtr("Renamed")}, []AssignmentDelta{
		{AssignmentID: &existing.ID, UserID: u1.ID, ToDelete: true},
		{UserID: 999},
	}, actorOf(manager))

	var missing *MissingUsersError
	s.Require().True(errors.As(err, &missing))
	s.Equal([]uint64{999}, missing.IDs)

	stored, err := s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("Original", stored.Title)
	s.Equal(task.Version, stored.Version)
	s.Equal([]uint64{u1.ID}, s.assigneesOf(task.ID))
	s.Len(s.notifier.events(), before)
}

func (s *ServiceTestSuite) TestUpdateTask_StaleVersion() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Contended", manager)

	stale := task.Version
	_, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Title: strPtr("First")}, nil, actorOf(manager))
	s.Require().NoError(err)

	_, err = s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{
		Title:           strPtr("Second"),
		ExpectedVersion: &stale,
	}, []AssignmentDelta{{UserID: u1.ID}}, actorOf(manager))
	s.ErrorIs(err, ErrTaskModified)

	stored, err := s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("First", stored.Title)
	s.Empty(s.assigneesOf(task.ID))
}

func (s *ServiceTestSuite) TestUpdateTask_StatusRequiresConfirmation() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Needs review", manager, u1)

	_, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Status: boolPtr(true)}, nil, actorOf(manager))
	s.ErrorIs(err, ErrTaskNotConfirmed)

	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, true, actorOf(u1)))

	updated, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Status: boolPtr(true)}, nil, actorOf(manager))
	s.Require().NoError(err)
	s.True(updated.Status)
	s.Require().NotNil(updated.CompletedAt)

	events := s.notifier.events()
	s.Equal([]notify.Event{notify.EventUpdated, notify.EventCompleted}, events[len(events)-2:])

	reopened, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Status: boolPtr(false)}, nil, actorOf(manager))
	s.Require().NoError(err)
	s.False(reopened.Status)
	s.Nil(reopened.CompletedAt)
}

func (s *ServiceTestSuite) TestUpdateTask_OnlyCreatorOrAdmin() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	owner := s.createUser("owner", models.RoleManager, admin)
	other := s.createUser("other", models.RoleManager, admin)
	task := s.createTask("Owned", owner)

	_, err := s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Title: strPtr("Hijacked")}, nil, actorOf(other))
	s.ErrorIs(err, ErrNotTaskCreator)

	_, err = s.tasks.UpdateTask(s.ctx, task.ID, UpdateTaskInput{Title: strPtr("Admin edit")}, nil, actorOf(admin))
	s.NoError(err)

	_, err = s.tasks.UpdateTask(s.ctx, 999, UpdateTaskInput{}, nil, actorOf(admin))
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *ServiceTestSuite) TestCompleteTask_RequiresConfirmation() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Unconfirmed", manager, u1)

	err := s.tasks.CompleteTask(s.ctx, task.ID, actorOf(manager))
	s.ErrorIs(err, ErrTaskNotConfirmed)

	stored, err := s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.False(stored.Status)
	s.Nil(stored.CompletedAt)
	s.Equal(task.Version, stored.Version)
}

func (s *ServiceTestSuite) TestReviewCycle() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	manager := s.createUser("manager", models.RoleManager, admin)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	outsider := s.createUser("outsider", models.RolePerformer, manager)
	task := s.createTask("Review me", manager, u1)

	s.ErrorIs(s.tasks.SetConfirmed(s.ctx, task.ID, true, actorOf(outsider)), ErrNotTaskMember)

	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, true, actorOf(u1)))
	last := s.notifier.last()
	s.Equal(notify.EventSubmittedForReview, last.Event)
	s.Equal([]uint64{manager.ID}, last.Users)

	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, false, actorOf(manager)))
	last = s.notifier.last()
	s.Equal(notify.EventReviewRejected, last.Event)
	s.Equal([]uint64{u1.ID}, last.Users)

	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, true, actorOf(u1)))
	s.clock.Advance(time.Hour)

	s.Require().NoError(s.tasks.CompleteTask(s.ctx, task.ID, actorOf(manager)))
	last = s.notifier.last()
	s.Equal(notify.EventReviewPassed, last.Event)
	s.Equal([]uint64{u1.ID}, last.Users)

	stored, err := s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.True(stored.Status)
	s.True(stored.IsCompleted())
	s.Require().NotNil(stored.CompletedAt)
	s.WithinDuration(s.clock.Now(), *stored.CompletedAt, time.Second)

	s.ErrorIs(s.tasks.SetConfirmed(s.ctx, task.ID, false, actorOf(u1)), ErrTaskAlreadyCompleted)
	s.ErrorIs(s.tasks.CompleteTask(s.ctx, task.ID, actorOf(manager)), ErrTaskAlreadyCompleted)
}

func (s *ServiceTestSuite) TestSetConfirmed_SameValueIsNoOp() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Idle", manager, u1)

	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, false, actorOf(u1)))
	stored, err := s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(task.Version, stored.Version)
	s.Equal([]notify.Event{notify.EventCreated}, s.notifier.events())

	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, true, actorOf(u1)))
	s.Require().NoError(s.tasks.SetConfirmed(s.ctx, task.ID, true, actorOf(u1)))

	stored, err = s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.True(stored.IsConfirmed)
	s.Equal(task.Version+1, stored.Version)
	s.Equal([]notify.Event{notify.EventCreated, notify.EventSubmittedForReview}, s.notifier.events())
	s.Equal(1, s.metrics.count(metrics.TaskConfirmed))
}

func (s *ServiceTestSuite) TestDeleteTask_NotifiesAssigneesResolvedBeforeDelete() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)
	task := s.createTask("Doomed", manager, u1, u2)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, task.ID, actorOf(u1)), ErrNotTaskCreator)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, task.ID, actorOf(manager)))

	last := s.notifier.last()
	s.Equal(notify.EventDeleted, last.Event)
	s.Equal("Doomed", last.Subject)
	s.ElementsMatch([]uint64{u1.ID, u2.ID}, last.Users)

	_, err := s.tasks.GetTask(s.ctx, task.ID, actorOf(manager))
	s.ErrorIs(err, ErrTaskNotFound)
	s.Empty(s.assigneesOf(task.ID))
}

func (s *ServiceTestSuite) TestDeleteTask_RejectedLeavesTaskIntact() {
	manager := s.createUser("manager", models.RoleManager, nil)
	other := s.createUser("other", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Keep me", manager, u1)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, task.ID, actorOf(other)), ErrNotTaskCreator)
	s.ErrorIs(s.tasks.DeleteTask(s.ctx, 999, actorOf(manager)), ErrTaskNotFound)

	stored, err := s.taskRepo.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(task.Version, stored.Version)
	s.Equal([]uint64{u1.ID}, s.assigneesOf(task.ID))
	s.Len(s.notifier.events(), 1)
}

func (s *ServiceTestSuite) TestDeletingTaskRowCascadesAssignments() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)
	task := s.createTask("Cascade", manager, u1, u2)

	s.Require().NoError(s.db.Delete(&models.Task{}, task.ID).Error)

	var count int64
	s.Require().NoError(s.db.Model(&models.TaskAssignment{}).Where("task_id = ?", task.ID).Count(&count).Error)
	s.Zero(count)
}

func (s *ServiceTestSuite) TestHardDeletingReferencedUserIsRestricted() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	s.createTask("Restrict", manager, u1)

	s.Error(s.db.Unscoped().Delete(&models.User{}, u1.ID).Error)
	s.Error(s.db.Unscoped().Delete(&models.User{}, manager.ID).Error)

	var count int64
	s.Require().NoError(s.db.Unscoped().Model(&models.User{}).Where("id IN ?", []uint64{manager.ID, u1.ID}).Count(&count).Error)
	s.Equal(int64(2), count)
}

func (s *ServiceTestSuite) TestTaskCreatorIsBelongsTo() {
	stmt := &gorm.Statement{DB: s.db}
	s.Require().NoError(stmt.Parse(&models.Task{}))

	rel, ok := stmt.Schema.Relationships.Relations["Creator"]
	s.Require().True(ok)
	s.Equal(schema.BelongsTo, rel.Type)
	s.Require().Len(rel.References, 1)
	s.Equal("created_by", rel.References[0].ForeignKey.DBName)
	s.Equal("users", rel.References[0].PrimaryKey.Schema.Table)
}

func (s *ServiceTestSuite) TestGetTask_PreloadsCreator() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	manager := s.createUser("manager", models.RoleManager, admin)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	task := s.createTask("Owned by admin", admin, u1)
	s.Require().Equal(admin.ID, task.CreatorID)

	got, err := s.tasks.GetTask(s.ctx, task.ID, actorOf(u1))
	s.Require().NoError(err)
	s.Equal(admin.ID, got.Creator.ID)
	s.Equal("admin", got.Creator.Login)
}

func (s *ServiceTestSuite) TestGetTask_Visibility() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	manager := s.createUser("manager", models.RoleManager, admin)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	outsider := s.createUser("outsider", models.RolePerformer, manager)
	task := s.createTask("Visible", manager, u1)

	got, err := s.tasks.GetTask(s.ctx, task.ID, actorOf(u1))
	s.Require().NoError(err)
	s.Equal(manager.ID, got.Creator.ID)
	s.Require().Len(got.Assignments, 1)
	s.Equal("u1", got.Assignments[0].User.Login)

	_, err = s.tasks.GetTask(s.ctx, task.ID, actorOf(outsider))
	s.ErrorIs(err, ErrTaskNotFound)

	_, err = s.tasks.GetTask(s.ctx, task.ID, actorOf(admin))
	s.NoError(err)
}

func (s *ServiceTestSuite) TestListTasks() {
	manager := s.createUser("manager", models.RoleManager, nil)
	u1 := s.createUser("u1", models.RolePerformer, manager)
	u2 := s.createUser("u2", models.RolePerformer, manager)

	late := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	_, err := s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "late", DueDate: &late}, []AssignmentDelta{{UserID: u1.ID}}, actorOf(manager))
	s.Require().NoError(err)
	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "undated"}, []AssignmentDelta{{UserID: u1.ID}}, actorOf(manager))
	s.Require().NoError(err)
	_, err = s.tasks.CreateTask(s.ctx, CreateTaskInput{Title: "early", DueDate: &early}, []AssignmentDelta{{UserID: u2.ID}}, actorOf(manager))
	s.Require().NoError(err)

	created, total, err := s.tasks.ListCreatedBy(s.ctx, manager.ID, utils.NewPaginationParams(1, 2))
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(created, 2)
	s.Equal("early", created[0].Title)
	s.Equal("late", created[1].Title)

	assigned, total, err := s.tasks.ListAssignedTo(s.ctx, u1.ID, utils.NewPaginationParams(1, 50))
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(assigned, 2)
	s.Equal("late", assigned[0].Title)
	s.Equal("undated", assigned[1].Title)
}
