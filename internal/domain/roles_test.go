package domain

import "testing"

func TestRoleRank(t *testing.T) {
	if RoleRank("user") >= RoleRank("moderator") {
		t.Fatalf("user should rank below moderator")
	}
	if RoleRank("moderator") >= RoleRank("admin") {
		t.Fatalf("moderator should rank below admin")
	}
	if RoleRank("root") != 0 {
		t.Fatalf("unknown role should rank 0")
	}
}

func TestActorAtLeast(t *testing.T) {
	cases := []struct {
		actor Actor
		min   Role
		ok    bool
	}{
		{Actor{ID: "u1", Role: "admin"}, RoleModerator, true},
		{Actor{ID: "u1", Role: "moderator"}, RoleModerator, true},
		{Actor{ID: "u1", Role: "user"}, RoleModerator, false},
		{Actor{ID: "", Role: "admin"}, RoleUser, false},
		{Actor{ID: "u1", Role: "root"}, RoleUser, false},
	}
	for _, c := range cases {
		if got := c.actor.AtLeast(c.min); got != c.ok {
			t.Fatalf("%+v AtLeast(%s) = %v, want %v", c.actor, c.min, got, c.ok)
		}
	}
}
