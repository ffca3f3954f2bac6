package codegen

import "github.com/lambdamechanic/pctxgo/internal/typegen"

// ListedFunction is the summary form of a tool returned by a functions-list
// operation: enough to let a caller decide whether to ask for full details.
type ListedFunction struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ID returns the FunctionID this listing refers to.
func (f ListedFunction) ID() FunctionID {
	return FunctionID{Namespace: f.Namespace, Name: f.Name}
}

// FunctionDetails is the full form of a tool: its listing plus generated
// input/output type names and the type declarations those names reference.
type FunctionDetails struct {
	ListedFunction
	InputType  string                 `json:"input_type"`
	OutputType string                 `json:"output_type"`
	Types      []typegen.Declaration  `json:"types"`
}

// DetailsFor looks up tool by FnName within ts and renders its
// FunctionDetails, or reports ok=false if no such tool exists.
func DetailsFor(ts Toolset, fnName string) (FunctionDetails, bool) {
	for _, t := range ts.Tools {
		if t.FnName != fnName {
			continue
		}
		return FunctionDetails{
			ListedFunction: ListedFunction{
				Namespace:   ts.NamespaceName,
				Name:        t.FnName,
				Description: t.Description,
			},
			InputType:  t.InputSignature,
			OutputType: t.OutputSignature,
			Types:      t.Types,
		}, true
	}
	return FunctionDetails{}, false
}
