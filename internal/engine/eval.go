package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Ограниченный вычислитель выражений для условных узлов.
//
// Грамматика намеренно минимальна и проверяема:
//
//	expr    := or
//	or      := and ("||" and)*
//	and     := cmp ("&&" cmp)*
//	cmp     := sum (("=="|"!="|"<"|"<="|">"|">=") sum)?
//	sum     := term (("+"|"-") term)*
//	term    := unary (("*"|"/"|"%") unary)*
//	unary   := ("!"|"-")? primary
//	primary := number | string | true | false | null | ident | "(" expr ")"
//
// Никаких вызовов функций, индексации, присваиваний и доступа к хосту —
// это граница безопасности, а не недоделка.

// EvalError — ошибка вычисления выражения.
type EvalError struct {
	Expr    string
	Message string
}

// Error реализует интерфейс error.
func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %q: %s", e.Expr, e.Message)
}

// Eval вычисляет выражение против контекста.
// Идентификаторы резолвятся в значения контекста; отсутствующий
// идентификатор вычисляется в nil.
func Eval(expr string, ctx Context) (any, error) {
	tokens, err := lex(expr)
	if err != nil {
		return nil, &EvalError{Expr: expr, Message: err.Error()}
	}

	p := &parser{tokens: tokens, ctx: ctx}
	result, err := p.parseOr()
	if err != nil {
		return nil, &EvalError{Expr: expr, Message: err.Error()}
	}
	if p.pos != len(p.tokens) {
		return nil, &EvalError{Expr: expr, Message: fmt.Sprintf("unexpected token %q", p.tokens[p.pos].text)}
	}

	return result, nil
}

// EvalBool вычисляет выражение и приводит результат к bool.
func EvalBool(expr string, ctx Context) (bool, error) {
	result, err := Eval(expr, ctx)
	if err != nil {
		return false, err
	}
	return truthy(result), nil
}

// --- Лексер ---

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
}

var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "+", "-", "*", "/", "%", "!", "(", ")"}

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(input) {
		c := rune(input[i])

		if unicode.IsSpace(c) {
			i++
			continue
		}

		// Строковый литерал в одинарных или двойных кавычках
		if c == '\'' || c == '"' {
			quote := input[i]
			end := strings.IndexByte(input[i+1:], quote)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{tokString, input[i+1 : i+1+end]})
			i += end + 2
			continue
		}

		// Число
		if unicode.IsDigit(c) || (c == '.' && i+1 < len(input) && unicode.IsDigit(rune(input[i+1]))) {
			j := i
			for j < len(input) && (unicode.IsDigit(rune(input[j])) || input[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, input[i:j]})
			i = j
			continue
		}

		// Идентификатор
		if unicode.IsLetter(c) || c == '_' {
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			tokens = append(tokens, token{tokIdent, input[i:j]})
			i = j
			continue
		}

		// Оператор
		matched := false
		for _, op := range operators {
			if strings.HasPrefix(input[i:], op) {
				tokens = append(tokens, token{tokOp, op})
				i += len(op)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}

	return tokens, nil
}

// --- Парсер ---

type parser struct {
	tokens []token
	pos    int
	ctx    Context
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok, ok := p.peek()
	if !ok || tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
}

func (p *parser) parseAnd() (any, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return left, nil
		}
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
}

func (p *parser) parseCmp() (any, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}

	op, ok := p.acceptOp("==", "!=", "<=", ">=", "<", ">")
	if !ok {
		return left, nil
	}

	right, err := p.parseSum()
	if err != nil {
		return nil, err
	}

	return compare(op, left, right)
}

func (p *parser) parseSum() (any, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left, err = arithmetic(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseTerm() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = arithmetic(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseUnary() (any, error) {
	if _, ok := p.acceptOp("!"); ok {
		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return !truthy(value), nil
	}

	if _, ok := p.acceptOp("-"); ok {
		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("cannot negate non-numeric value %v", value)
		}
		return -n, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (any, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	switch tok.kind {
	case tokNumber:
		p.pos++
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok.text)
		}
		return n, nil

	case tokString:
		p.pos++
		return tok.text, nil

	case tokIdent:
		p.pos++
		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		default:
			value, _ := p.ctx.Lookup(tok.text)
			return value, nil
		}

	case tokOp:
		if tok.text == "(" {
			p.pos++
			value, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.acceptOp(")"); !ok {
				return nil, fmt.Errorf("missing closing parenthesis")
			}
			return value, nil
		}
	}

	return nil, fmt.Errorf("unexpected token %q", tok.text)
}

// --- Семантика значений ---

// truthy определяет истинность значения: false/0/""/nil — ложь.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		if n, ok := toNumber(value); ok {
			return n != 0
		}
		return true
	}
}

// toNumber приводит значение к float64, если возможно.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// compare сравнивает значения: числа численно, строки лексикографически.
func compare(op string, left, right any) (any, error) {
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)

	if lok && rok {
		switch op {
		case "==":
			return ln == rn, nil
		case "!=":
			return ln != rn, nil
		case "<":
			return ln < rn, nil
		case "<=":
			return ln <= rn, nil
		case ">":
			return ln > rn, nil
		case ">=":
			return ln >= rn, nil
		}
	}

	ls := fmt.Sprintf("%v", left)
	rs := fmt.Sprintf("%v", right)

	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	case ">":
		return ls > rs, nil
	case ">=":
		return ls >= rs, nil
	}

	return nil, fmt.Errorf("unknown comparison operator %q", op)
}

// arithmetic выполняет арифметическую операцию.
// "+" для двух строк — конкатенация.
func arithmetic(op string, left, right any) (any, error) {
	if op == "+" {
		ls, lok := left.(string)
		rs, rok := right.(string)
		if lok && rok {
			return ls + rs, nil
		}
	}

	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %q requires numeric operands, got %v and %v", op, left, right)
	}

	switch op {
	case "+":
		return ln + rn, nil
	case "-":
		return ln - rn, nil
	case "*":
		return ln * rn, nil
	case "/":
		if rn == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return ln / rn, nil
	case "%":
		if rn == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return float64(int64(ln) % int64(rn)), nil
	}

	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}
