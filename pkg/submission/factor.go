package submission

// FactorUnknown is sent when the age bracket has no pricing factor.
const FactorUnknown = "No calculado"

var ageFactors = map[string]string{
	"18-25": "0.9",
	"26-35": "1.0",
	"36-45": "1.3",
	"46-55": "1.4",
	"56-64": "2.0",
	"65+":   "2.4",
}

// Factor returns the pricing factor for an age bracket.
func Factor(bracket string) string {
	if f, ok := ageFactors[bracket]; ok {
		return f
	}
	return FactorUnknown
}
