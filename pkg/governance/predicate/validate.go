package predicate

import "fmt"

// Validate checks the structure of a predicate tree without evaluating it.
// It returns a *ValidationError listing every problem found, or nil.
func Validate(p *Predicate) error {
	var problems []string
	validateNode(p, "root", 0, &problems)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateNode(p *Predicate, path string, depth int, problems *[]string) {
	if p == nil {
		*problems = append(*problems, path+": nil predicate")
		return
	}
	if depth > MaxDepth {
		*problems = append(*problems, fmt.Sprintf("%s: nested deeper than %d", path, MaxDepth))
		return
	}
	if !p.Operator.IsValid() {
		*problems = append(*problems, fmt.Sprintf("%s: unknown operator %q", path, p.Operator))
		return
	}
	if p.Type != "" && !p.Type.IsValid() {
		*problems = append(*problems, fmt.Sprintf("%s: unknown type %q", path, p.Type))
	}

	switch p.Operator {
	case OperatorAnd, OperatorOr:
		if len(p.Children) == 0 {
			*problems = append(*problems, fmt.Sprintf("%s: %s requires at least one child", path, p.Operator))
		}
	case OperatorNot:
		if len(p.Children) == 0 && p.Field == "" {
			*problems = append(*problems, path+": not requires a child or a field")
		}
		if len(p.Children) > 1 {
			*problems = append(*problems, path+": not takes a single child")
		}
	default:
		if p.Type == "" {
			*problems = append(*problems, path+": leaf predicate requires a type")
		}
		if p.Field == "" {
			*problems = append(*problems, path+": leaf predicate requires a field")
		}
		if len(p.Children) > 0 {
			*problems = append(*problems, path+": leaf predicate cannot have children")
		}
	}

	for i, child := range p.Children {
		validateNode(child, childPath(path, i), depth+1, problems)
	}
}
