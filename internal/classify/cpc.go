package classify

import "github.com/OPEN-NEXT/LOSH-krawler/internal"

var unmappedCategories = map[string]struct{}{
	"Arts":          {},
	"Education":     {},
	"Environmental": {},
	"Manufacturing": {},
	"Other":         {},
	"Science":       {},
	"Tool":          {},
}

var cpcCodes = map[string]string{
	"3D Printing":     "B33Y",
	"Agriculture":     "A01",
	"Electronics":     "H",
	"Enclosure":       "F16M",
	"Home Connection": "H04W",
	"IOT":             "H04",
	"Robotics":        "B25J9 / 00",
	"Sound":           "H04R",
	"Space":           "B64G",
	"Wearables":       "H",
}

// CPCCode maps an OSHWA project category to a CPC patent class. Categories
// without a class keep the provider's additional types instead.
func CPCCode(primaryType string, additionalType []string) internal.ClassificationCode {
	if _, ok := unmappedCategories[primaryType]; ok {
		if len(additionalType) == 0 {
			return internal.SingleCode("")
		}
		return internal.CodeList(additionalType)
	}
	if code, ok := cpcCodes[primaryType]; ok {
		return internal.SingleCode(code)
	}
	return internal.SingleCode(primaryType)
}
