package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role discriminates which variant payload is attached to a User.
type Role string

const (
	RoleClient              Role = "client"
	RoleBoutiqueOwner       Role = "boutique_owner"
	RoleDeliveryPerson      Role = "delivery_person"
	RoleAdmin               Role = "admin"
	RoleDeliveryManager     Role = "delivery_manager"
	RoleAllBoutiquesManager Role = "all_boutiques_manager"
)

// RegistrableRoles are the roles open to self-service registration.
// Manager and admin accounts are provisioned out of band.
var RegistrableRoles = map[Role]bool{
	RoleClient:         true,
	RoleBoutiqueOwner:  true,
	RoleDeliveryPerson: true,
}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleBoutiqueOwner, RoleDeliveryPerson,
		RoleAdmin, RoleDeliveryManager, RoleAllBoutiquesManager:
		return true
	}
	return false
}

// Address represents a single address entry for a user.
type Address struct {
	ID        string `bson:"id" json:"id"`
	Title     string `bson:"title" json:"title"`
	Detail    string `bson:"detail" json:"detail"`
	Note      string `bson:"note,omitempty" json:"note,omitempty"`
	IsDefault bool   `bson:"isDefault" json:"isDefault"`
}

// ApplicationStatus tracks a delivery person's onboarding review.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type ClientProfile struct {
	Wishlist      []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	OrderHistory  []primitive.ObjectID `bson:"orderHistory" json:"orderHistory"`
	LoyaltyPoints int                  `bson:"loyaltyPoints" json:"loyaltyPoints"`
}

type BoutiqueOwnerProfile struct {
	Boutiques    []primitive.ObjectID `bson:"boutiques" json:"boutiques"`
	Subscription *primitive.ObjectID  `bson:"subscription,omitempty" json:"subscription,omitempty"`
}

type DeliveryPersonProfile struct {
	IsAvailable       bool                 `bson:"isAvailable" json:"isAvailable"`
	Deliveries        []primitive.ObjectID `bson:"deliveries" json:"deliveries"`
	Earnings          float64              `bson:"earnings" json:"earnings"`
	ApplicationStatus ApplicationStatus    `bson:"applicationStatus" json:"applicationStatus"`
	Documents         []string             `bson:"documents" json:"documents"`
}

type AdminProfile struct {
	Permissions []string             `bson:"permissions" json:"permissions"`
	ActivityLog []primitive.ObjectID `bson:"activityLog" json:"activityLog"`
}

type DeliveryManagerProfile struct {
	ManagedDeliveries []primitive.ObjectID `bson:"managedDeliveries" json:"managedDeliveries"`
	ManagedPersonnel  []primitive.ObjectID `bson:"managedPersonnel" json:"managedPersonnel"`
}

type AllBoutiquesManagerProfile struct {
	ManagedBoutiques  []primitive.ObjectID `bson:"managedBoutiques" json:"managedBoutiques"`
	ComplianceReports []primitive.ObjectID `bson:"complianceReports" json:"complianceReports"`
}

// User is the base identity record. Role selects which of the variant
// payloads is populated; exactly one is non-nil for a well-formed record.
// PasswordHash is empty for federated-only accounts.
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email              string             `bson:"email" json:"email"`
	PasswordHash       string             `bson:"passwordHash,omitempty" json:"-"`
	Name               string             `bson:"name" json:"name"`
	Phone              string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role               Role               `bson:"role" json:"role"`
	Addresses          []Address          `bson:"addresses" json:"addresses"`
	IsEmailVerified    bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	ExternalProviderID string             `bson:"externalProviderId,omitempty" json:"externalProviderId,omitempty"`
	ProfileImage       string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`

	Client              *ClientProfile              `bson:"client,omitempty" json:"client,omitempty"`
	BoutiqueOwner       *BoutiqueOwnerProfile       `bson:"boutiqueOwner,omitempty" json:"boutiqueOwner,omitempty"`
	DeliveryPerson      *DeliveryPersonProfile      `bson:"deliveryPerson,omitempty" json:"deliveryPerson,omitempty"`
	Admin               *AdminProfile               `bson:"admin,omitempty" json:"admin,omitempty"`
	DeliveryManager     *DeliveryManagerProfile     `bson:"deliveryManager,omitempty" json:"deliveryManager,omitempty"`
	AllBoutiquesManager *AllBoutiquesManagerProfile `bson:"allBoutiquesManager,omitempty" json:"allBoutiquesManager,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AttachRolePayload initializes the variant payload matching u.Role,
// clearing any payload already set for another role.
func (u *User) AttachRolePayload() {
	u.Client = nil
	u.BoutiqueOwner = nil
	u.DeliveryPerson = nil
	u.Admin = nil
	u.DeliveryManager = nil
	u.AllBoutiquesManager = nil

	switch u.Role {
	case RoleClient:
		u.Client = &ClientProfile{
			Wishlist:     []primitive.ObjectID{},
			OrderHistory: []primitive.ObjectID{},
		}
	case RoleBoutiqueOwner:
		u.BoutiqueOwner = &BoutiqueOwnerProfile{
			Boutiques: []primitive.ObjectID{},
		}
	case RoleDeliveryPerson:
		u.DeliveryPerson = &DeliveryPersonProfile{
			Deliveries:        []primitive.ObjectID{},
			ApplicationStatus: ApplicationPending,
			Documents:         []string{},
		}
	case RoleAdmin:
		u.Admin = &AdminProfile{
			Permissions: []string{},
			ActivityLog: []primitive.ObjectID{},
		}
	case RoleDeliveryManager:
		u.DeliveryManager = &DeliveryManagerProfile{
			ManagedDeliveries: []primitive.ObjectID{},
			ManagedPersonnel:  []primitive.ObjectID{},
		}
	case RoleAllBoutiquesManager:
		u.AllBoutiquesManager = &AllBoutiquesManagerProfile{
			ManagedBoutiques:  []primitive.ObjectID{},
			ComplianceReports: []primitive.ObjectID{},
		}
	}
}

// Sanitized returns a copy safe to serialize to callers and to cache.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// DefaultAddress returns the address flagged default, if any.
func (u *User) DefaultAddress() *Address {
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			return &u.Addresses[i]
		}
	}
	return nil
}
