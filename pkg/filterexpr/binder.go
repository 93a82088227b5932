// Package filterexpr binds CEL filter and order_by strings from list requests
// onto SQL query parameter structs. Only a flat AND of whitelisted
// field/operator pairs is accepted; anything else is rejected up front so no
// unvetted expression ever reaches the database.
package filterexpr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Msg wraps request DTOs that expose filter and order_by raw inputs.
type Msg interface {
	GetFilter() string
	GetOrderBy() string
}

// Kind describes the literal type a filter field accepts.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
)

// Op is a supported comparison operation.
type Op string

const (
	OpEQ  Op = "=="
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpSW  Op = "startsWith"
	OpIN  Op = "in"
)

// Field maps a filter identifier to params struct fields, one per allowed op.
type Field struct {
	Kind Kind
	Ops  map[Op]string
}

// Schema aggregates the filtering and ordering rules for one resource.
type Schema struct {
	Fields map[string]Field
	Order  OrderSchema
}

// Bind parses the request filter & order_by and populates params accordingly.
func Bind[M Msg, P any](msg M, params *P, schema Schema) error {
	if params == nil {
		return errors.New("params must not be nil")
	}
	dest := reflect.ValueOf(params).Elem()

	if err := bindFilter(dest, msg.GetFilter(), schema.Fields); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if err := bindOrder(dest, msg.GetOrderBy(), schema.Order); err != nil {
		return fmt.Errorf("order_by: %w", err)
	}
	return nil
}

func bindFilter(dest reflect.Value, filter string, fields map[string]Field) error {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil
	}
	if len(fields) == 0 {
		return errors.New("schema has no filter fields")
	}

	env, err := newEnv(fields)
	if err != nil {
		return err
	}
	ast, issues := env.Parse(filter)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid expression: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return fmt.Errorf("convert AST: %w", err)
	}

	preds, err := flattenAnd(parsed.GetExpr())
	if err != nil {
		return err
	}
	for _, expr := range preds {
		if err := applyPredicate(dest, expr, fields); err != nil {
			return err
		}
	}
	return nil
}

func newEnv(fields map[string]Field) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(fields)+1)
	for name, field := range fields {
		switch field.Kind {
		case KindString:
			opts = append(opts, cel.Variable(name, cel.StringType))
		case KindNumber:
			opts = append(opts, cel.Variable(name, cel.DoubleType))
		default:
			return nil, fmt.Errorf("field %q: unsupported kind %s", name, field.Kind)
		}
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	return cel.NewEnv(opts...)
}

// flattenAnd unfolds nested AND chains into atomic predicates. Any other
// logical operator is rejected.
func flattenAnd(expr *exprpb.Expr) ([]*exprpb.Expr, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}
	call := expr.GetCallExpr()
	if call == nil {
		return []*exprpb.Expr{expr}, nil
	}
	switch call.Function {
	case "_&&_":
		var out []*exprpb.Expr
		for _, arg := range call.Args {
			sub, err := flattenAnd(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case "_||_", "_?_:_", "!_":
		return nil, fmt.Errorf("operator %q is not supported; only AND is allowed", call.Function)
	default:
		return []*exprpb.Expr{expr}, nil
	}
}

func applyPredicate(dest reflect.Value, expr *exprpb.Expr, fields map[string]Field) error {
	name, op, value, err := decodePredicate(expr)
	if err != nil {
		return err
	}
	rule, ok := fields[name]
	if !ok {
		return fmt.Errorf("field %q is not allowed", name)
	}
	target, ok := rule.Ops[op]
	if !ok {
		return fmt.Errorf("operator %q is not allowed for field %q", string(op), name)
	}
	if err := checkLiteral(rule.Kind, op, value); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return assign(dest, target, value)
}

func decodePredicate(expr *exprpb.Expr) (string, Op, any, error) {
	call := expr.GetCallExpr()
	if call == nil {
		return "", "", nil, errors.New("expected a comparison")
	}

	var op Op
	switch call.Function {
	case "_==_":
		op = OpEQ
	case "_>=_":
		op = OpGTE
	case "_<=_":
		op = OpLTE
	case "_in_", "@in":
		op = OpIN
	case "startsWith":
		op = OpSW
	default:
		return "", "", nil, fmt.Errorf("function %q is not supported", call.Function)
	}

	var fieldExpr, valueExpr *exprpb.Expr
	switch {
	case call.Target != nil && len(call.Args) == 1:
		// receiver form: field.startsWith("x")
		fieldExpr, valueExpr = call.Target, call.Args[0]
	case call.Target == nil && len(call.Args) == 2:
		fieldExpr, valueExpr = call.Args[0], call.Args[1]
	default:
		return "", "", nil, fmt.Errorf("operator %q expects two operands", string(op))
	}

	ident := fieldExpr.GetIdentExpr()
	if ident == nil {
		return "", "", nil, errors.New("left-hand side must be a field identifier")
	}
	value, err := literalValue(valueExpr)
	if err != nil {
		return "", "", nil, err
	}
	return ident.GetName(), op, value, nil
}

func literalValue(expr *exprpb.Expr) (any, error) {
	if constant := expr.GetConstExpr(); constant != nil {
		switch constant.ConstantKind.(type) {
		case *exprpb.Constant_StringValue:
			return constant.GetStringValue(), nil
		case *exprpb.Constant_Int64Value:
			return float64(constant.GetInt64Value()), nil
		case *exprpb.Constant_Uint64Value:
			return float64(constant.GetUint64Value()), nil
		case *exprpb.Constant_DoubleValue:
			return constant.GetDoubleValue(), nil
		default:
			return nil, fmt.Errorf("literal type %T is not supported", constant.ConstantKind)
		}
	}
	if list := expr.GetListExpr(); list != nil {
		values := make([]string, 0, len(list.GetElements()))
		for _, elem := range list.GetElements() {
			val, err := literalValue(elem)
			if err != nil {
				return nil, err
			}
			str, ok := val.(string)
			if !ok {
				return nil, errors.New("list elements must be string literals")
			}
			values = append(values, str)
		}
		return values, nil
	}
	return nil, errors.New("right-hand side must be a literal")
}

func checkLiteral(kind Kind, op Op, value any) error {
	switch op {
	case OpIN:
		if _, ok := value.([]string); !ok {
			return errors.New("in requires a list of strings")
		}
		return nil
	case OpSW:
		if _, ok := value.(string); !ok {
			return errors.New("startsWith requires a string literal")
		}
		return nil
	}
	switch kind {
	case KindString:
		if _, ok := value.(string); !ok {
			return errors.New("expected a string literal")
		}
	case KindNumber:
		if _, ok := value.(float64); !ok {
			return errors.New("expected a numeric literal")
		}
	}
	return nil
}

func assign(dest reflect.Value, fieldName string, value any) error {
	field := dest.FieldByName(fieldName)
	if !field.IsValid() || !field.CanSet() {
		return fmt.Errorf("params struct %s has no settable field %q", dest.Type(), fieldName)
	}
	val := reflect.ValueOf(value)
	if !val.Type().ConvertibleTo(field.Type()) {
		return fmt.Errorf("field %q must accept %s", fieldName, val.Type())
	}
	field.Set(val.Convert(field.Type()))
	return nil
}
