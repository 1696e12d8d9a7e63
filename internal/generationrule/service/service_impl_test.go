package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/clock"
	condominiumdomain "github.com/jadiazinf/condominio-core/internal/condominium/domain"
	condominiumrepo "github.com/jadiazinf/condominio-core/internal/condominium/repository"
	"github.com/jadiazinf/condominio-core/internal/events"
	formuladomain "github.com/jadiazinf/condominio-core/internal/formula/domain"
	formularepo "github.com/jadiazinf/condominio-core/internal/formula/repository"
	"github.com/jadiazinf/condominio-core/internal/generationrule/domain"
	"github.com/jadiazinf/condominio-core/internal/generationrule/repository"
	paymentconceptdomain "github.com/jadiazinf/condominio-core/internal/paymentconcept/domain"
	paymentconceptrepo "github.com/jadiazinf/condominio-core/internal/paymentconcept/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testActor = snowflake.ID(9001)

func setupRuleTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&condominiumdomain.Condominium{},
		&condominiumdomain.Building{},
		&paymentconceptdomain.PaymentConcept{},
		&formuladomain.QuotaFormula{},
		&domain.QuotaGenerationRule{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS billing_events (
			id INTEGER PRIMARY KEY,
			condominium_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at DATETIME NOT NULL,
			UNIQUE (condominium_id, dedupe_key)
		)`,
	).Error; err != nil {
		t.Fatalf("create billing_events: %v", err)
	}
	return db
}

func newRuleService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:              db,
		log:             zap.NewNop(),
		genID:           node,
		clock:           clock.SystemClock{},
		repo:            repository.Provide(),
		condominiumRepo: condominiumrepo.Provide(),
		conceptRepo:     paymentconceptrepo.Provide(),
		formulaRepo:     formularepo.Provide(),
		outbox:          events.NewOutbox(db, node),
	}
}

type ruleFixture struct {
	condominiumID snowflake.ID
	buildingID    snowflake.ID
	conceptID     snowflake.ID
	formulaID     snowflake.ID
}

func seedRuleFixture(t *testing.T, db *gorm.DB) ruleFixture {
	t.Helper()
	f := ruleFixture{
		condominiumID: 100,
		buildingID:    200,
		conceptID:     300,
		formulaID:     400,
	}
	mustExec(t, db, `INSERT INTO condominiums (id, company_id, name) VALUES (?, 1, ?)`, f.condominiumID, "Torre Central")
	mustExec(t, db, `INSERT INTO buildings (id, condominium_id, name) VALUES (?, ?, ?)`, f.buildingID, f.condominiumID, "Torre A")
	mustExec(t, db, `INSERT INTO payment_concepts (id, condominium_id, name) VALUES (?, ?, ?)`, f.conceptID, f.condominiumID, "Maintenance")
	mustExec(t, db,
		`INSERT INTO quota_formulas (id, condominium_id, name, formula_type, fixed_amount, currency_id, is_active, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.formulaID, f.condominiumID, "Flat fee", "fixed", "50.00", 1, true, testActor,
	)
	return f
}

func mustExec(t *testing.T, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func baseCreateRequest(f ruleFixture) domain.CreateRequest {
	return domain.CreateRequest{
		CondominiumID:    f.condominiumID.String(),
		PaymentConceptID: f.conceptID.String(),
		QuotaFormulaID:   f.formulaID.String(),
		Name:             "Monthly maintenance",
		EffectiveFrom:    "2026-01-01",
	}
}

func TestCreateRuleCondominiumWide(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)

	rule, err := svc.Create(context.Background(), baseCreateRequest(f), testActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rule.BuildingID != nil {
		t.Fatalf("expected condominium-wide rule, got building %v", rule.BuildingID)
	}
	if !rule.IsActive {
		t.Fatal("new rule must be active")
	}
	if rule.CreatedBy != testActor {
		t.Fatalf("created_by = %v, want %v", rule.CreatedBy, testActor)
	}

	var eventCount int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_events WHERE event_type = ?`, events.EventRuleCreated).Scan(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 outbox event, got %d", eventCount)
	}
}

func TestCreateRuleBuildingScoped(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)

	req := baseCreateRequest(f)
	req.BuildingID = f.buildingID.String()

	rule, err := svc.Create(context.Background(), req, testActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rule.BuildingID == nil || *rule.BuildingID != f.buildingID {
		t.Fatalf("expected building %v, got %v", f.buildingID, rule.BuildingID)
	}
}

func TestCreateRuleValidationChain(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)

	otherCondoID := snowflake.ID(101)
	mustExec(t, db, `INSERT INTO condominiums (id, company_id, name) VALUES (?, 1, ?)`, otherCondoID, "Otro")
	inactiveFormulaID := snowflake.ID(401)
	mustExec(t, db,
		`INSERT INTO quota_formulas (id, condominium_id, name, formula_type, fixed_amount, currency_id, is_active, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inactiveFormulaID, f.condominiumID, "Retired", "fixed", "10.00", 1, false, testActor,
	)

	svc := newRuleService(t, db)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*domain.CreateRequest)
		wantErr error
	}{
		{
			name:    "condominium missing",
			mutate:  func(r *domain.CreateRequest) { r.CondominiumID = "999999" },
			wantErr: domain.ErrCondominiumNotFound,
		},
		{
			name:    "building missing",
			mutate:  func(r *domain.CreateRequest) { r.BuildingID = "888888" },
			wantErr: domain.ErrBuildingNotFound,
		},
		{
			name: "building in other condominium",
			mutate: func(r *domain.CreateRequest) {
				r.CondominiumID = otherCondoID.String()
				r.BuildingID = f.buildingID.String()
				r.QuotaFormulaID = f.formulaID.String()
			},
			wantErr: domain.ErrBuildingWrongCondo,
		},
		{
			name:    "payment concept missing",
			mutate:  func(r *domain.CreateRequest) { r.PaymentConceptID = "777777" },
			wantErr: domain.ErrPaymentConceptNotFound,
		},
		{
			name:    "formula missing",
			mutate:  func(r *domain.CreateRequest) { r.QuotaFormulaID = "666666" },
			wantErr: domain.ErrFormulaNotFound,
		},
		{
			name:    "formula inactive",
			mutate:  func(r *domain.CreateRequest) { r.QuotaFormulaID = inactiveFormulaID.String() },
			wantErr: domain.ErrFormulaInactive,
		},
		{
			name: "window inverted",
			mutate: func(r *domain.CreateRequest) {
				r.EffectiveFrom = "2026-06-01"
				r.EffectiveTo = "2026-01-01"
			},
			wantErr: domain.ErrInvalidDateWindow,
		},
		{
			name:    "effective from malformed",
			mutate:  func(r *domain.CreateRequest) { r.EffectiveFrom = "01/01/2026" },
			wantErr: domain.ErrInvalidEffectiveFrom,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseCreateRequest(f)
			tc.mutate(&req)
			_, err := svc.Create(ctx, req, testActor)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateRuleRejectsOverlapSameScope(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)
	ctx := context.Background()

	first := baseCreateRequest(f)
	first.EffectiveFrom = "2026-01-01"
	first.EffectiveTo = "2026-06-30"
	if _, err := svc.Create(ctx, first, testActor); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := baseCreateRequest(f)
	second.EffectiveFrom = "2026-06-01"
	if _, err := svc.Create(ctx, second, testActor); !errors.Is(err, domain.ErrOverlappingRule) {
		t.Fatalf("err = %v, want %v", err, domain.ErrOverlappingRule)
	}

	// A building-scoped rule over the same window is a different scope.
	scoped := baseCreateRequest(f)
	scoped.BuildingID = f.buildingID.String()
	scoped.EffectiveFrom = "2026-01-01"
	if _, err := svc.Create(ctx, scoped, testActor); err != nil {
		t.Fatalf("building-scoped create: %v", err)
	}

	// Adjacent windows do not overlap.
	adjacent := baseCreateRequest(f)
	adjacent.EffectiveFrom = "2026-07-01"
	if _, err := svc.Create(ctx, adjacent, testActor); err != nil {
		t.Fatalf("adjacent create: %v", err)
	}
}

func TestCreateRuleIgnoresDeactivatedOverlap(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)
	ctx := context.Background()

	first, err := svc.Create(ctx, baseCreateRequest(f), testActor)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Deactivate(ctx, first.ID.String(), "replaced by updated fee schedule", testActor); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.Create(ctx, baseCreateRequest(f), testActor); err != nil {
		t.Fatalf("create after deactivation: %v", err)
	}
}

func TestResolvePrefersBuildingScope(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)
	ctx := context.Background()

	wide, err := svc.Create(ctx, baseCreateRequest(f), testActor)
	if err != nil {
		t.Fatalf("create wide: %v", err)
	}
	scopedReq := baseCreateRequest(f)
	scopedReq.BuildingID = f.buildingID.String()
	scoped, err := svc.Create(ctx, scopedReq, testActor)
	if err != nil {
		t.Fatalf("create scoped: %v", err)
	}

	got, err := svc.Resolve(ctx, domain.ResolveRequest{
		CondominiumID:    f.condominiumID.String(),
		PaymentConceptID: f.conceptID.String(),
		TargetDate:       "2026-03-15",
		BuildingID:       f.buildingID.String(),
	})
	if err != nil {
		t.Fatalf("resolve with building: %v", err)
	}
	if got.ID != scoped.ID {
		t.Fatalf("resolved %v, want building-scoped %v", got.ID, scoped.ID)
	}

	got, err = svc.Resolve(ctx, domain.ResolveRequest{
		CondominiumID:    f.condominiumID.String(),
		PaymentConceptID: f.conceptID.String(),
		TargetDate:       "2026-03-15",
	})
	if err != nil {
		t.Fatalf("resolve without building: %v", err)
	}
	if got.ID != wide.ID {
		t.Fatalf("resolved %v, want condominium-wide %v", got.ID, wide.ID)
	}
}

func TestResolveNoApplicableRule(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)

	req := baseCreateRequest(f)
	req.EffectiveFrom = "2026-01-01"
	req.EffectiveTo = "2026-06-30"
	if _, err := svc.Create(context.Background(), req, testActor); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Resolve(context.Background(), domain.ResolveRequest{
		CondominiumID:    f.condominiumID.String(),
		PaymentConceptID: f.conceptID.String(),
		TargetDate:       "2026-07-01",
	})
	if !errors.Is(err, domain.ErrNoRule) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNoRule)
	}
}

func TestDeactivateRequiresReason(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	svc := newRuleService(t, db)
	ctx := context.Background()

	rule, err := svc.Create(ctx, baseCreateRequest(f), testActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Deactivate(ctx, rule.ID.String(), "   ", testActor); !errors.Is(err, domain.ErrDeactivateReasonMissing) {
		t.Fatalf("err = %v, want %v", err, domain.ErrDeactivateReasonMissing)
	}

	updated, err := svc.Deactivate(ctx, rule.ID.String(), "superseded by new rule", testActor)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if updated.IsActive {
		t.Fatal("rule should be inactive")
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != testActor {
		t.Fatalf("updated_by = %v, want %v", updated.UpdatedBy, testActor)
	}
}

func TestInsertPreservesInactiveFlag(t *testing.T) {
	db := setupRuleTestDB(t)
	f := seedRuleFixture(t, db)
	repo := repository.Provide()
	ctx := context.Background()

	rule := &domain.QuotaGenerationRule{
		ID:               700,
		CondominiumID:    f.condominiumID,
		PaymentConceptID: f.conceptID,
		QuotaFormulaID:   f.formulaID,
		Name:             "Retired maintenance fee",
		EffectiveFrom:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:         false,
		CreatedBy:        testActor,
	}
	if err := repo.Insert(ctx, db, rule); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stored, err := repo.FindByID(ctx, db, rule.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil || stored.IsActive {
		t.Fatalf("stored = %+v, want inactive rule", stored)
	}
}
