package sso

import (
	"github.com/ssobridge/ssobridge/internal/db/models"
)

// Normalize maps raw backend attributes onto the tenant's standard field
// vocabulary. The responseMapping (standardKey to sourceKey) is applied
// first; raw keys the mapping did not consume are carried through under
// their original names unless a mapped key already claimed the name; the
// tenant's static customFields are merged last and win every collision.
//
// The function is idempotent and never fails: absent or malformed mapping
// sections are treated as empty.
func Normalize(cfg *models.TenantSSOConfig, raw map[string]interface{}) map[string]interface{} {
	mapping, custom := mappingConfig(cfg)

	out := make(map[string]interface{}, len(raw)+len(custom))
	consumed := make(map[string]bool, len(mapping))

	for standard, source := range mapping {
		if v, ok := raw[source]; ok {
			out[standard] = v
			consumed[source] = true
		}
	}

	for k, v := range raw {
		if consumed[k] {
			continue
		}

		if _, taken := out[k]; taken {
			continue
		}

		out[k] = v
	}

	for k, v := range custom {
		out[k] = v
	}

	return out
}

// mappingConfig extracts responseMapping and customFields from the tenant's
// additionalConfig blob. Anything malformed degrades to empty.
func mappingConfig(cfg *models.TenantSSOConfig) (map[string]string, map[string]interface{}) {
	mapping := map[string]string{}
	custom := map[string]interface{}{}

	if cfg == nil {
		return mapping, custom
	}

	additional := cfg.Additional()

	if rawMapping, ok := additional["responseMapping"].(map[string]interface{}); ok {
		for standard, source := range rawMapping {
			if s, ok := source.(string); ok && s != "" {
				mapping[standard] = s
			}
		}
	}

	if rawCustom, ok := additional["customFields"].(map[string]interface{}); ok {
		custom = rawCustom
	}

	return mapping, custom
}
