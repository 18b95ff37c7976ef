package score

import (
	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/types"
)

// Model is the trained linear predictor of spec §4.4: feature 0 is the
// "base" term, features 1..R correspond one-to-one with the resource
// catalog in catalog order.
type Model struct {
	Intercept    float64
	Coefficients []float64 // length len(catalog)+1
}

// modelFromDoc validates a docstore.ModelDoc against catalog and
// converts it to a Model. The document's feature list must have exactly
// "base" followed by the catalog's resource names, in catalog order
// (spec §4.4: "validates feature list order matches the resource
// catalog").
func modelFromDoc(doc docstore.ModelDoc, catalog []types.Resource) (Model, error) {
	if len(doc.Features) != len(catalog)+1 || len(doc.Coefficients) != len(catalog)+1 {
		return Model{}, ErrFeatureMismatch
	}
	if doc.Features[0] != "base" {
		return Model{}, ErrFeatureMismatch
	}
	for i, r := range catalog {
		if doc.Features[1+i] != r.Name {
			return Model{}, ErrFeatureMismatch
		}
	}
	return Model{Intercept: doc.Intercept, Coefficients: doc.Coefficients}, nil
}
