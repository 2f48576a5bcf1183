package plan

import "encoding/json"

// Serialize renders p as compact canonical JSON. encoding/json sorts map
// keys when marshaling, so Arguments round-trips with the same key order
// pkg/canon.Canonicalize would produce independently.
func Serialize(p *Plan) (string, error) {
	out, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
