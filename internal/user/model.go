// File: internal/user/model.go
package user

import (
	"strings"
	"time"
)

// Providers recorded on a profile.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// RoleUser is the role given to every new account unless the caller supplies one.
const RoleUser = "user"

// Profile is the application-level user record kept in the users collection
// (document id = UID) and mirrored in the local cache.
type Profile struct {
	UID           string     `json:"uid" firestore:"uid"`
	Email         string     `json:"email" firestore:"email"`
	FirstName     string     `json:"firstName" firestore:"firstName"`
	LastName      string     `json:"lastName" firestore:"lastName"`
	Phone         string     `json:"phone" firestore:"phone"`
	Role          string     `json:"role" firestore:"role"`
	Place         string     `json:"place" firestore:"place"`
	District      string     `json:"district" firestore:"district"`
	Pincode       string     `json:"pincode" firestore:"pincode"`
	Provider      string     `json:"provider" firestore:"provider"`
	DisplayName   string     `json:"displayName" firestore:"displayName"`
	PhotoURL      *string    `json:"photoURL" firestore:"photoURL"`
	EmailVerified bool       `json:"emailVerified" firestore:"emailVerified"`
	CreatedAt     *time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty" firestore:"lastLogin,omitempty"`

	// IsNewUser only travels on registration and Google sign-up responses.
	IsNewUser *bool `json:"isNewUser,omitempty" firestore:"-"`
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.PhotoURL = cloneString(p.PhotoURL)
	c.CreatedAt = cloneTime(p.CreatedAt)
	c.UpdatedAt = cloneTime(p.UpdatedAt)
	c.LastLogin = cloneTime(p.LastLogin)
	if p.IsNewUser != nil {
		v := *p.IsNewUser
		c.IsNewUser = &v
	}
	return &c
}

// WithNewUser returns a copy carrying the transient isNewUser flag.
func (p *Profile) WithNewUser(isNew bool) *Profile {
	c := p.Clone()
	c.IsNewUser = &isNew
	return c
}

// RegisterRequest carries the fields accepted by email/password registration.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Role      string `json:"role" validate:"omitempty,max=50"`
	Place     string `json:"place" validate:"omitempty,max=100"`
	District  string `json:"district" validate:"omitempty,max=100"`
	Pincode   string `json:"pincode" validate:"omitempty,max=16"`
}

// DisplayName is the name pushed to the identity platform at registration.
func (r RegisterRequest) DisplayName() string {
	return r.FirstName + " " + r.LastName
}

// NewEmailProfile builds the record written for a freshly registered account.
func NewEmailProfile(uid, email string, photoURL *string, emailVerified bool, req RegisterRequest) *Profile {
	role := req.Role
	if role == "" {
		role = RoleUser
	}
	return &Profile{
		UID:           uid,
		Email:         email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Role:          role,
		Place:         req.Place,
		District:      req.District,
		Pincode:       req.Pincode,
		Provider:      ProviderEmail,
		DisplayName:   req.DisplayName(),
		PhotoURL:      cloneString(photoURL),
		EmailVerified: emailVerified,
	}
}

// NewGoogleProfile builds the record provisioned on the first Google sign-up.
func NewGoogleProfile(uid, email, displayName string, photoURL *string, emailVerified bool) *Profile {
	first, last := SplitDisplayName(displayName)
	return &Profile{
		UID:           uid,
		Email:         email,
		FirstName:     first,
		LastName:      last,
		Role:          RoleUser,
		Provider:      ProviderGoogle,
		DisplayName:   displayName,
		PhotoURL:      cloneString(photoURL),
		EmailVerified: emailVerified,
	}
}

// SplitDisplayName takes the first space-separated token as the first name and joins the
// remaining tokens with single spaces as the last name. Missing parts are empty strings.
func SplitDisplayName(displayName string) (first, last string) {
	parts := strings.Split(displayName, " ")
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Place     *string `json:"place,omitempty"`
	District  *string `json:"district,omitempty"`
	Pincode   *string `json:"pincode,omitempty"`
	PhotoURL  *string `json:"photoURL,omitempty"`
}

// Fields returns the supplied fields keyed by their document field names.
func (u ProfileUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	set := func(name string, v *string) {
		if v != nil {
			fields[name] = *v
		}
	}
	set("firstName", u.FirstName)
	set("lastName", u.LastName)
	set("phone", u.Phone)
	set("place", u.Place)
	set("district", u.District)
	set("pincode", u.Pincode)
	set("photoURL", u.PhotoURL)
	return fields
}

// NameChanged reports whether the update touches the first or last name.
func (u ProfileUpdate) NameChanged() bool {
	return u.FirstName != nil || u.LastName != nil
}

// DisplayNameOver combines the updated name parts with the stored ones.
func (u ProfileUpdate) DisplayNameOver(stored *Profile) string {
	var first, last string
	if stored != nil {
		first, last = stored.FirstName, stored.LastName
	}
	if u.FirstName != nil {
		first = *u.FirstName
	}
	if u.LastName != nil {
		last = *u.LastName
	}
	return strings.TrimSpace(first + " " + last)
}

// Merge applies the update on top of a copy of p (shallow merge, new fields win).
func (p *Profile) Merge(u ProfileUpdate) *Profile {
	merged := p.Clone()
	if merged == nil {
		merged = &Profile{}
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&merged.FirstName, u.FirstName)
	apply(&merged.LastName, u.LastName)
	apply(&merged.Phone, u.Phone)
	apply(&merged.Place, u.Place)
	apply(&merged.District, u.District)
	apply(&merged.Pincode, u.Pincode)
	if u.PhotoURL != nil {
		merged.PhotoURL = cloneString(u.PhotoURL)
	}
	return merged
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
