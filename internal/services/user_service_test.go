package services

import (
	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

func validUserInput(login string, role models.Role) CreateUserInput {
	return CreateUserInput{
		LastName:  "Ivanova",
		FirstName: "Anna",
		Login:     login,
		Password:  "secret123",
		Role:      role,
	}
}

func (s *ServiceTestSuite) TestCreateUser() {
	admin := s.createUser("admin", models.RoleAdmin, nil)

	user, err := s.users.CreateUser(s.ctx, validUserInput(" anna ", models.RoleManager), actorOf(admin))
	s.Require().NoError(err)

	s.Equal("anna", user.Login)
	s.Equal(models.RoleManager, user.Role)
	s.Require().NotNil(user.CreatedBy)
	s.Equal(admin.ID, *user.CreatedBy)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	s.Equal(1, s.metrics.count(metrics.UserCreated))

	_, err = s.users.CreateUser(s.ctx, validUserInput("anna", models.RolePerformer), actorOf(admin))
	s.ErrorIs(err, ErrLoginTaken)
}

func (s *ServiceTestSuite) TestCreateUser_RoleRules() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	manager := s.createUser("manager", models.RoleManager, admin)
	performer := s.createUser("performer", models.RolePerformer, manager)

	_, err := s.users.CreateUser(s.ctx, validUserInput("m2", models.RoleManager), actorOf(manager))
	s.ErrorIs(err, ErrRoleNotAllowed)

	_, err = s.users.CreateUser(s.ctx, validUserInput("p2", models.RolePerformer), actorOf(performer))
	s.ErrorIs(err, ErrRoleNotAllowed)

	_, err = s.users.CreateUser(s.ctx, validUserInput("x", models.Role("owner")), actorOf(admin))
	s.ErrorIs(err, ErrInvalidRole)

	created, err := s.users.CreateUser(s.ctx, validUserInput("p3", ""), actorOf(manager))
	s.Require().NoError(err)
	s.Equal(models.RolePerformer, created.Role)
}

func (s *ServiceTestSuite) TestCreateUser_Validation() {
	admin := s.createUser("admin", models.RoleAdmin, nil)

	input := validUserInput("short", models.RolePerformer)
	input.Password = "123"
	_, err := s.users.CreateUser(s.ctx, input, actorOf(admin))
	s.ErrorIs(err, ErrPasswordTooShort)

	input = validUserInput("  ", models.RolePerformer)
	_, err = s.users.CreateUser(s.ctx, input, actorOf(admin))
	s.ErrorIs(err, ErrLoginRequired)

	input = validUserInput("noname", models.RolePerformer)
	input.FirstName = ""
	_, err = s.users.CreateUser(s.ctx, input, actorOf(admin))
	s.ErrorIs(err, ErrNameRequired)
}

func (s *ServiceTestSuite) TestUpdateUser() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	manager := s.createUser("manager", models.RoleManager, admin)
	other := s.createUser("other", models.RoleManager, admin)
	performer := s.createUser("performer", models.RolePerformer, manager)
	oldHash := performer.PasswordHash

	updated, err := s.users.UpdateUser(s.ctx, performer.ID, UpdateUserInput{
		LastName:  "Petrov",
		FirstName: "Ivan",
		Login:     "ivan",
	}, actorOf(manager))
	s.Require().NoError(err)
	s.Equal("ivan", updated.Login)
	s.Equal(models.RolePerformer, updated.Role)
	s.Equal(oldHash, updated.PasswordHash)

	_, err = s.users.UpdateUser(s.ctx, performer.ID, UpdateUserInput{
		LastName:  "Petrov",
		FirstName: "Ivan",
		Login:     "ivan",
		Password:  "newsecret",
	}, actorOf(other))
	s.ErrorIs(err, ErrUserNotManageable)

	_, err = s.users.UpdateUser(s.ctx, performer.ID, UpdateUserInput{
		LastName:  "Petrov",
		FirstName: "Ivan",
		Login:     "other",
	}, actorOf(manager))
	s.ErrorIs(err, ErrLoginTaken)

	updated, err = s.users.UpdateUser(s.ctx, performer.ID, UpdateUserInput{
		LastName:  "Petrov",
		FirstName: "Ivan",
		Login:     "ivan",
		Password:  "newsecret",
	}, actorOf(admin))
	s.Require().NoError(err)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newsecret")))

	_, err = s.users.UpdateUser(s.ctx, 999, UpdateUserInput{LastName: "a", FirstName: "b", Login: "c"}, actorOf(admin))
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceTestSuite) TestSoftDeleteUser() {
	admin := s.createUser("admin", models.RoleAdmin, nil)
	manager := s.createUser("manager", models.RoleManager, admin)
	performer := s.createUser("performer", models.RolePerformer, manager)

	_, err := s.devices.Register(s.ctx, performer.ID, "tok-phone", "android")
	s.Require().NoError(err)
	_, err = s.devices.Register(s.ctx, performer.ID, "tok-tablet", "ios")
	s.Require().NoError(err)

	s.ErrorIs(s.users.SoftDeleteUser(s.ctx, manager.ID, actorOf(manager)), ErrCannotDeleteSelf)

	s.Require().NoError(s.users.SoftDeleteUser(s.ctx, performer.ID, actorOf(manager)))

	s.Require().Len(s.notifier.devices, 1)
	notice := s.notifier.devices[0]
	s.Equal(notify.EventAccountDeleted, notice.Event)
	s.ElementsMatch([]string{"tok-phone", "tok-tablet"}, notice.Tokens)

	tokens, err := s.deviceRepo.TokensForUsers(s.ctx, []uint64{performer.ID})
	s.Require().NoError(err)
	s.Empty(tokens)

	stored, err := s.users.GetUser(s.ctx, performer.ID)
	s.Require().NoError(err)
	s.True(stored.IsDeleted())

	manageable, err := s.users.ListManageable(s.ctx, manager.ID)
	s.Require().NoError(err)
	s.Equal([]uint64{manager.ID}, idsOf(manageable))

	created, err := s.users.ListCreatedBy(s.ctx, manager.ID)
	s.Require().NoError(err)
	s.Equal([]uint64{manager.ID, performer.ID}, idsOf(created))

	s.ErrorIs(s.users.SoftDeleteUser(s.ctx, performer.ID, actorOf(admin)), ErrUserNotFound)
}
