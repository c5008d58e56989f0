package domain

type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Name     string `db:"name" json:"name"`
	Hash     string `db:"password_hash" json:"-"`
	Role     string `db:"role" json:"role"`
}

const (
	RoleRequester = "REQUESTER"
	RolePicker    = "PICKER"
	RoleAdmin     = "ADMIN"
)

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// CanRequest reports whether the user may build and submit pick requests.
func (u *User) CanRequest() bool { return u.Role == RoleRequester || u.Role == RoleAdmin }

// CanPick reports whether the user may start and fulfil pick requests.
func (u *User) CanPick() bool { return u.Role == RolePicker || u.Role == RoleAdmin }
