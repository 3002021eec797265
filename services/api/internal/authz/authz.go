// Package authz decides which chat users may call which shop operations.
package authz

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cedar-policy/cedar-go"
)

//go:embed policies.cedar
var policiesContent []byte

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Action string

const (
	ActionCreateOrder   Action = "create_order"
	ActionMarkPaid      Action = "mark_paid"
	ActionConfirmOrder  Action = "confirm_order"
	ActionRejectOrder   Action = "reject_order"
	ActionReadOrder     Action = "read_order"
	ActionListPending   Action = "list_pending"
	ActionReadPurchases Action = "read_purchases"
	ActionReadAvailable Action = "read_available"
	ActionManageKeys    Action = "manage_keys"
	ActionReadStats     Action = "read_stats"
)

const (
	typeUser      = cedar.EntityType("KeyShop::User")
	typeAction    = cedar.EntityType("KeyShop::Action")
	typeOrder     = cedar.EntityType("KeyShop::Order")
	typeInventory = cedar.EntityType("KeyShop::Inventory")
	typeShop      = cedar.EntityType("KeyShop::Shop")
)

// Principal is the chat user making a request.
type Principal struct {
	UserID int64
	Role   Role
}

// Resource is the object an action targets. Owner is zero for shop-wide
// resources.
type Resource struct {
	Type  cedar.EntityType
	ID    string
	Owner int64
}

func OrderResource(orderID, owner int64) Resource {
	return Resource{Type: typeOrder, ID: strconv.FormatInt(orderID, 10), Owner: owner}
}

// UserResource targets data belonging to userID, such as purchase history.
func UserResource(userID int64) Resource {
	return Resource{Type: typeUser, ID: strconv.FormatInt(userID, 10), Owner: userID}
}

func InventoryResource() Resource {
	return Resource{Type: typeInventory, ID: "keys"}
}

func ShopResource() Resource {
	return Resource{Type: typeShop, ID: "shop"}
}

type Decision struct {
	Allowed  bool
	PolicyID string
}

type Authorizer struct {
	policies *cedar.PolicySet
	admins   map[int64]struct{}
	logger   *slog.Logger
}

// New parses the embedded policies. Users listed in adminIDs get RoleAdmin.
func New(adminIDs []int64, logger *slog.Logger) (*Authorizer, error) {
	return NewWithPolicies(policiesContent, adminIDs, logger)
}

func NewWithPolicies(policies []byte, adminIDs []int64, logger *slog.Logger) (*Authorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ps, err := cedar.NewPolicySetFromBytes("policies.cedar", policies)
	if err != nil {
		return nil, fmt.Errorf("parse policies: %w", err)
	}

	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Authorizer{policies: ps, admins: admins, logger: logger}, nil
}

// PrincipalFor resolves the role of userID.
func (a *Authorizer) PrincipalFor(userID int64) Principal {
	if _, ok := a.admins[userID]; ok {
		return Principal{UserID: userID, Role: RoleAdmin}
	}
	return Principal{UserID: userID, Role: RoleUser}
}

func (a *Authorizer) Authorize(ctx context.Context, p Principal, action Action, r Resource) Decision {
	principalUID := cedar.NewEntityUID(typeUser, cedar.String(strconv.FormatInt(p.UserID, 10)))
	resourceUID := cedar.NewEntityUID(r.Type, cedar.String(r.ID))

	principalAttrs := cedar.RecordMap{
		"id":   cedar.Long(p.UserID),
		"role": cedar.String(string(p.Role)),
	}
	resourceAttrs := cedar.RecordMap{}
	if r.Owner != 0 {
		resourceAttrs["owner"] = cedar.Long(r.Owner)
	}

	entities := cedar.EntityMap{}
	if resourceUID == principalUID {
		// A user's own record is both principal and resource.
		for k, v := range resourceAttrs {
			principalAttrs[k] = v
		}
	} else {
		entities[resourceUID] = cedar.Entity{
			UID:        resourceUID,
			Parents:    cedar.NewEntityUIDSet(),
			Attributes: cedar.NewRecord(resourceAttrs),
		}
	}
	entities[principalUID] = cedar.Entity{
		UID:        principalUID,
		Parents:    cedar.NewEntityUIDSet(),
		Attributes: cedar.NewRecord(principalAttrs),
	}

	decision, diag := cedar.Authorize(a.policies, entities, cedar.Request{
		Principal: principalUID,
		Action:    cedar.NewEntityUID(typeAction, cedar.String(string(action))),
		Resource:  resourceUID,
		Context:   cedar.NewRecord(cedar.RecordMap{}),
	})

	result := Decision{Allowed: decision == cedar.Allow}
	if len(diag.Reasons) > 0 {
		result.PolicyID = string(diag.Reasons[0].PolicyID)
	}
	for _, e := range diag.Errors {
		a.logger.ErrorContext(ctx, "policy evaluation error", "policy", e.PolicyID, "error", e.Message)
	}

	level := slog.LevelDebug
	if !result.Allowed {
		level = slog.LevelInfo
	}
	a.logger.Log(ctx, level, "authorization decision",
		"user_id", p.UserID,
		"role", p.Role,
		"action", action,
		"resource", resourceUID.String(),
		"allowed", result.Allowed,
		"policy_id", result.PolicyID,
	)
	return result
}
