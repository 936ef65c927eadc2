package testutil

import "github.com/roach88/querykit/internal/meta"

// UserSchema returns the schema shared by the package tests:
//
//	User        user        id, username, age, name, parent -> User (pid), department -> Department (did)
//	Department  department  id, name, code (dept_code), head -> User (head_id)
//	UserSummary projection of User: id, name (username)
//
// Every call returns a fresh schema.
func UserSchema() *meta.Schema {
	s := meta.NewSchema().MustEntity(
		meta.NewEntity("User", "user",
			meta.BasicAttribute("id", ""),
			meta.BasicAttribute("username", ""),
			meta.BasicAttribute("age", ""),
			meta.BasicAttribute("name", ""),
			meta.ToOneAttribute("parent", "User", "pid"),
			meta.ToOneAttribute("department", "Department", "did"),
		),
		meta.NewEntity("Department", "department",
			meta.BasicAttribute("id", ""),
			meta.BasicAttribute("name", ""),
			meta.BasicAttribute("code", "dept_code"),
			meta.ToOneAttribute("head", "User", "head_id"),
		),
	)
	if err := s.AddProjection(&meta.Projection{
		Name:   "UserSummary",
		Entity: "User",
		Attributes: []meta.ProjectionAttribute{
			{Name: "id", Source: "id"},
			{Name: "name", Source: "username"},
		},
	}); err != nil {
		panic(err)
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

// UserDDL creates the tables of UserSchema in SQLite.
const UserDDL = `
CREATE TABLE department (
    id        INTEGER PRIMARY KEY,
    name      TEXT NOT NULL,
    dept_code TEXT NOT NULL,
    head_id   INTEGER
);

CREATE TABLE user (
    id       INTEGER PRIMARY KEY,
    username TEXT NOT NULL,
    age      INTEGER NOT NULL,
    name     TEXT NOT NULL,
    pid      INTEGER REFERENCES user(id),
    did      INTEGER REFERENCES department(id)
);
`

// UserRows seeds the tables created by UserDDL.
const UserRows = `
INSERT INTO department (id, name, dept_code, head_id) VALUES
    (1, 'Engineering', 'ENG', 1),
    (2, 'Sales', 'SAL', 3);

INSERT INTO user (id, username, age, name, pid, did) VALUES
    (1, 'ann', 41, 'Ann', NULL, 1),
    (2, 'jim', 17, 'Jim', 1, 1),
    (3, 'joe', 35, 'Joe', 1, 2),
    (4, 'kim', 29, 'Kim', 3, 2),
    (5, 'lee', 22, 'Lee', 3, NULL);
`
