package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const checkInQuery = "data.presence.check_in.deny_reason"

// defaultRegoPolicy mirrors DefaultDecision.
const defaultRegoPolicy = `package presence.check_in

default deny_reason := ""

deny_reason := "OUTSIDE_BRANCH" if {
	input.classification == "OUTSIDE_BRANCH"
}

deny_reason := "GPS_REQUIRED" if {
	input.classification == "GPS_BLOCKED"
	not input.settings.allow_check_in_without_gps
}
`

// maxCustomPolicies bounds the prepared-query cache of company policies.
const maxCustomPolicies = 256

// OPAEvaluator evaluates the check-in policy with OPA Rego.
type OPAEvaluator struct {
	def rego.PreparedEvalQuery

	mu     sync.Mutex
	custom map[string]rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the default policy.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	def, err := prepare(ctx, defaultRegoPolicy)
	if err != nil {
		return nil, fmt.Errorf("prepare default policy: %w", err)
	}
	return &OPAEvaluator{def: def, custom: make(map[string]rego.PreparedEvalQuery)}, nil
}

func prepare(ctx context.Context, policy string) (rego.PreparedEvalQuery, error) {
	compiler, err := ast.CompileModules(map[string]string{"check_in.rego": policy})
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile policy: %w", err)
	}
	return rego.New(rego.Query(checkInQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
}

// HealthCheck verifies that the default policy evaluates. Does not touch the database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	in := CheckInInput{Classification: "OUTSIDE_BRANCH", At: time.Unix(0, 0).UTC()}
	reason, err := eval(ctx, e.def, in)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if reason != DenyOutsideBranch {
		return fmt.Errorf("default policy returned %q, want %q", reason, DenyOutsideBranch)
	}
	return nil
}

// EvaluateCheckIn evaluates the company policy (or the default). A policy that fails to compile or
// evaluate is logged and the default decision is returned, so a broken policy never blocks check-ins.
func (e *OPAEvaluator) EvaluateCheckIn(ctx context.Context, customPolicy string, in CheckInInput) (CheckInDecision, error) {
	q := e.def
	if customPolicy != "" {
		prepared, err := e.preparedFor(ctx, customPolicy)
		if err != nil {
			log.Printf("policy: company %s check-in policy: %v, using default", in.CompanyID, err)
			return DefaultDecision(in), nil
		}
		q = prepared
	}
	reason, err := eval(ctx, q, in)
	if err != nil {
		if ctx.Err() != nil {
			return CheckInDecision{}, ctx.Err()
		}
		log.Printf("policy: check-in evaluation failed for company %s: %v, using default", in.CompanyID, err)
		return DefaultDecision(in), nil
	}
	if reason == "" {
		return CheckInDecision{Allow: true}, nil
	}
	return CheckInDecision{DenyReason: reason}, nil
}

func (e *OPAEvaluator) preparedFor(ctx context.Context, policy string) (rego.PreparedEvalQuery, error) {
	e.mu.Lock()
	q, ok := e.custom[policy]
	e.mu.Unlock()
	if ok {
		return q, nil
	}
	q, err := prepare(ctx, policy)
	if err != nil {
		return rego.PreparedEvalQuery{}, err
	}
	e.mu.Lock()
	if len(e.custom) >= maxCustomPolicies {
		e.custom = make(map[string]rego.PreparedEvalQuery)
	}
	e.custom[policy] = q
	e.mu.Unlock()
	return q, nil
}

func eval(ctx context.Context, q rego.PreparedEvalQuery, in CheckInInput) (string, error) {
	rs, err := q.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return "", err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", fmt.Errorf("policy query returned no result")
	}
	reason, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("deny_reason is %T, want string", rs[0].Expressions[0].Value)
	}
	return reason, nil
}

func buildInput(in CheckInInput) map[string]interface{} {
	return map[string]interface{}{
		"company_id":       in.CompanyID,
		"employee_id":      in.EmployeeID,
		"branch_id":        in.BranchID,
		"classification":   string(in.Classification),
		"distance_m":       in.DistanceM,
		"accuracy_m":       in.AccuracyM,
		"free_task_active": in.FreeTaskActive,
		"at":               in.At.UTC().Format(time.RFC3339),
		"settings": map[string]interface{}{
			"allow_check_in_without_gps": in.AllowWithoutGPS,
		},
	}
}
