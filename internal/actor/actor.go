// Package actor resolves a session identity into exactly one of Doctor or
// Admin. The Actor interface is sealed so "neither" and "both" cannot be
// represented; a nil Actor means the session is unresolved.
package actor

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindDoctor Kind = "doctor"
	KindAdmin  Kind = "admin"
)

type Permission string

const (
	PermViewAll       Permission = "view_all"
	PermManageDoctors Permission = "manage_doctors"
	PermViewLogs      Permission = "view_logs"
	PermCompliance    Permission = "compliance"
)

// SuperAdminPermissions are granted to configured super-admin emails.
var SuperAdminPermissions = []Permission{PermViewAll, PermManageDoctors, PermViewLogs, PermCompliance}

const DefaultPlan = "starter"

// Identity is what the external identity provider knows about a session.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type Actor interface {
	Kind() Kind
	ActorID() uuid.UUID
	Email() string
	DisplayName() string
	sealed()
}

type Doctor struct {
	ID               uuid.UUID
	UserID           string
	EmailAddr        string
	Name             string
	Plan             string
	AppointmentsUsed int
	VoiceMinutesUsed int
	CreatedAt        time.Time

	// OwnedClinics is filled by the resolver; it is not a stored column.
	OwnedClinics []uuid.UUID
}

func (d *Doctor) Kind() Kind { return KindDoctor }
func (d *Doctor) ActorID() uuid.UUID { return d.ID }
func (d *Doctor) Email() string { return d.EmailAddr }
func (d *Doctor) DisplayName() string { return d.Name }
func (d *Doctor) sealed() {}

// Owns reports whether clinicID is among the doctor's clinics.
func (d *Doctor) Owns(clinicID uuid.UUID) bool {
	for _, id := range d.OwnedClinics {
		if id == clinicID {
			return true
		}
	}
	return false
}

type Admin struct {
	ID          uuid.UUID
	UserID      string
	EmailAddr   string
	Name        string
	Permissions []Permission
	SuperAdmin  bool
}

func (a *Admin) Kind() Kind { return KindAdmin }
func (a *Admin) ActorID() uuid.UUID { return a.ID }
func (a *Admin) Email() string { return a.EmailAddr }
func (a *Admin) DisplayName() string { return a.Name }
func (a *Admin) sealed() {}

func (a *Admin) Can(p Permission) bool {
	for _, have := range a.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// AsDoctor returns the doctor variant, if that is what a holds.
func AsDoctor(a Actor) (*Doctor, bool) {
	d, ok := a.(*Doctor)
	return d, ok && d != nil
}

func AsAdmin(a Actor) (*Admin, bool) {
	ad, ok := a.(*Admin)
	return ad, ok && ad != nil
}

// HasPermission is true for admins holding p. Doctors hold no admin permissions.
func HasPermission(a Actor, p Permission) bool {
	if ad, ok := AsAdmin(a); ok {
		return ad.Can(p)
	}
	return false
}
