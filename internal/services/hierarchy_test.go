package services

import (
	"github.com/yukikurage/team-todo-api/internal/models"
)

func (s *ServiceTestSuite) TestResolveManagedUsers_BreadthFirst() {
	root := s.createUser("root", models.RoleAdmin, nil)
	a := s.createUser("a", models.RoleManager, root)
	b := s.createUser("b", models.RoleManager, root)
	c := s.createUser("c", models.RolePerformer, a)
	d := s.createUser("d", models.RolePerformer, b)

	resolver := NewHierarchyResolver(s.userRepo)
	users, err := resolver.ResolveManagedUsers(s.ctx, root.ID)
	s.Require().NoError(err)

	s.Equal([]uint64{root.ID, a.ID, b.ID, c.ID, d.ID}, idsOf(users))
}

func (s *ServiceTestSuite) TestResolveManagedUsers_StartsBelowInnerNode() {
	root := s.createUser("root", models.RoleAdmin, nil)
	a := s.createUser("a", models.RoleManager, root)
	s.createUser("b", models.RoleManager, root)
	c := s.createUser("c", models.RolePerformer, a)

	users, err := NewHierarchyResolver(s.userRepo).ResolveManagedUsers(s.ctx, a.ID)
	s.Require().NoError(err)

	s.Equal([]uint64{a.ID, c.ID}, idsOf(users))
}

func (s *ServiceTestSuite) TestResolveManagedUsers_MissingRoot() {
	users, err := NewHierarchyResolver(s.userRepo).ResolveManagedUsers(s.ctx, 999)
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *ServiceTestSuite) TestResolveManagedUsers_StopsOnCycle() {
	root := s.createUser("root", models.RoleAdmin, nil)
	a := s.createUser("a", models.RoleManager, root)
	c := s.createUser("c", models.RolePerformer, a)

	// corrupt the tree so that root is its own grandchild's child
	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", root.ID).Update("created_by", c.ID).Error)

	users, err := NewHierarchyResolver(s.userRepo).ResolveManagedUsers(s.ctx, root.ID)
	s.Require().NoError(err)

	s.Equal([]uint64{root.ID, a.ID, c.ID}, idsOf(users))
}

func (s *ServiceTestSuite) TestResolveActiveManagedUsers_TraversesDeletedUsers() {
	root := s.createUser("root", models.RoleAdmin, nil)
	a := s.createUser("a", models.RoleManager, root)
	b := s.createUser("b", models.RoleManager, root)
	c := s.createUser("c", models.RolePerformer, a)

	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, a.ID))

	resolver := NewHierarchyResolver(s.userRepo)

	all, err := resolver.ResolveManagedUsers(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Equal([]uint64{root.ID, a.ID, b.ID, c.ID}, idsOf(all))

	active, err := resolver.ResolveActiveManagedUsers(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Equal([]uint64{root.ID, b.ID, c.ID}, idsOf(active))

	ok, err := resolver.Manages(s.ctx, root.ID, c.ID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = resolver.Manages(s.ctx, b.ID, c.ID)
	s.Require().NoError(err)
	s.False(ok)
}
