package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/sequence"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type harness struct {
	db       *db.Client
	repo     Repository
	users    *users.Repository
	carts    cart.Service
	outbox   *outbox.Repository
	placer   *Placer
	workflow *Workflow
	query    *QueryService
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	repo := NewRepository(conn)
	userRepo := users.NewRepository(conn)
	carts, err := cart.NewService(cart.NewRepository(conn), client, nil)
	require.NoError(t, err)
	gen, err := sequence.NewGenerator(sequence.NewDBCounter(conn), sequence.DefaultPrefix, nil)
	require.NoError(t, err)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, nil)

	placer, err := NewPlacer(PlacerDeps{
		Repo:           repo,
		Tx:             client,
		Users:          userRepo,
		Carts:          carts,
		Numbers:        gen,
		Outbox:         emitter,
		MismatchPolicy: policy,
	})
	require.NoError(t, err)
	workflow, err := NewWorkflow(repo, client, emitter, nil, nil)
	require.NoError(t, err)
	query, err := NewQueryService(repo)
	require.NoError(t, err)

	return &harness{
		db:       client,
		repo:     repo,
		users:    userRepo,
		carts:    carts,
		outbox:   outboxRepo,
		placer:   placer,
		workflow: workflow,
		query:    query,
	}
}

func strPtr(v string) *string { return &v }

func (h *harness) customer(t *testing.T) *models.User {
	t.Helper()
	u, err := h.users.Create(context.Background(), users.CreateUserDTO{
		Email:   uuid.NewString()[:8] + "@example.com",
		Name:    "Jordan Lee",
		Phone:   strPtr("555-0101"),
		Address: strPtr("1 Main St"),
	})
	require.NoError(t, err)
	return u
}

func admin() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
}

func owner(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: enums.RoleCustomer}
}

func tee(qty int) cart.ItemInput {
	return cart.ItemInput{
		ProductID: strPtr("p-1"),
		Title:     "T",
		Price:     decimal.RequireFromString("20.00"),
		ImageSrc:  "https://cdn.example.com/t.png",
		Size:      "M",
		Color:     "Blue",
		Quantity:  qty,
	}
}

func (h *harness) place(t *testing.T, u *models.User) *PlaceOrderResult {
	t.Helper()
	res, err := h.placer.Place(context.Background(), u.ID, PlaceOrderInput{Items: []cart.ItemInput{tee(1)}})
	require.NoError(t, err)
	return res
}

