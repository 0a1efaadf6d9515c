package rag

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"gopherai-rag/internal/ai"
)

const ProductToolName = "get_product_info"

type MatchMode string

const (
	MatchExact   MatchMode = "exact"
	MatchPartial MatchMode = "partial"
)

func (m MatchMode) Valid() bool {
	return m == MatchExact || m == MatchPartial
}

type ProductInfo struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// ProductFinder looks products up for the get_product_info tool. Exact mode
// is a case-insensitive name match, partial a case-insensitive substring match.
type ProductFinder interface {
	FindProducts(ctx context.Context, query string, mode MatchMode) ([]ProductInfo, error)
}

type productToolArgs struct {
	ProductName string    `json:"productName"`
	SearchType  MatchMode `json:"searchType"`
}

func productTool() ai.Tool {
	return ai.Tool{
		Name:        ProductToolName,
		Description: "Look up products in the catalog and return their name, price and description.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"productName": {
					Type:        jsonschema.String,
					Description: "Product name or part of it",
				},
				"searchType": {
					Type:        jsonschema.String,
					Enum:        []string{string(MatchExact), string(MatchPartial)},
					Description: "exact for a full name, partial for a substring search",
				},
			},
			Required: []string{"productName", "searchType"},
		},
	}
}

// parseToolCall validates a call against the declared schema.
func parseToolCall(call ai.ToolCall) (productToolArgs, error) {
	var args productToolArgs
	if call.Name != ProductToolName {
		return args, Errorf(ErrToolArgument, "unknown tool %q", call.Name)
	}

	dec := json.NewDecoder(strings.NewReader(call.Arguments))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, Wrap(ErrToolArgument, "decode "+ProductToolName+" arguments", err)
	}
	if strings.TrimSpace(args.ProductName) == "" {
		return args, Errorf(ErrToolArgument, "productName is required")
	}
	if !args.SearchType.Valid() {
		return args, Errorf(ErrToolArgument, "searchType must be exact or partial, got %q", args.SearchType)
	}
	return args, nil
}

// toolResult is the JSON payload handed back to the model.
func toolResult(args productToolArgs, products []ProductInfo) (string, error) {
	if products == nil {
		products = []ProductInfo{}
	}
	payload := struct {
		Query    string        `json:"query"`
		Mode     MatchMode     `json:"searchType"`
		Count    int           `json:"count"`
		Products []ProductInfo `json:"products"`
	}{args.ProductName, args.SearchType, len(products), products}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", Wrap(ErrToolExecution, "encode tool result", err)
	}
	return string(raw), nil
}
