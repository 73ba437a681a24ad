package country

import (
	"sort"

	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// State is an Indian GST jurisdiction.
type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Label renders the "27-Maharashtra" form used as place of supply.
func (s State) Label() string {
	return s.Code + "-" + s.Name
}

var states = map[string]string{
	"01": "Jammu and Kashmir", "02": "Himachal Pradesh", "03": "Punjab", "04": "Chandigarh",
	"05": "Uttarakhand", "06": "Haryana", "07": "Delhi", "08": "Rajasthan",
	"09": "Uttar Pradesh", "10": "Bihar", "11": "Sikkim", "12": "Arunachal Pradesh",
	"13": "Nagaland", "14": "Manipur", "15": "Mizoram", "16": "Tripura",
	"17": "Meghalaya", "18": "Assam", "19": "West Bengal", "20": "Jharkhand",
	"21": "Odisha", "22": "Chhattisgarh", "23": "Madhya Pradesh", "24": "Gujarat",
	"25": "Daman and Diu", "26": "Dadra and Nagar Haveli", "27": "Maharashtra", "28": "Andhra Pradesh",
	"29": "Karnataka", "30": "Goa", "31": "Lakshadweep", "32": "Kerala",
	"33": "Tamil Nadu", "34": "Puducherry", "35": "Andaman and Nicobar Islands", "36": "Telangana",
	"37": "Andhra Pradesh (New)",
}

// IndianStates lists GST states ordered by code.
func IndianStates() []State {
	out := make([]State, 0, len(states))
	for code, name := range states {
		out = append(out, State{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// StateName resolves the two-digit prefix of a GSTIN or place of supply.
func StateName(v string) (string, bool) {
	name, ok := states[pricing.StateCode(v)]
	return name, ok
}
