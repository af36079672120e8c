package optimize

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"foreman/pkg/logging"
)

// Container-level fields a patch may replace. Everything else a patch
// carries, the primary command and image included, is ignored: the
// decision service tunes the shape of a run, never what it executes.
var containerFields = []string{"resources", "env", "args"}

// Job-level fields a patch may replace; these carry the node count.
var jobFields = []string{"parallelism", "completions"}

// ApplyPatch applies the whitelisted parts of an optimization patch to
// the manifest and returns the re-rendered YAML. Application is
// deterministic and idempotent: the same patch against the same manifest
// always renders the same text.
func ApplyPatch(manifestText string, patch map[string]interface{}) (string, error) {
	if len(patch) == 0 {
		return manifestText, nil
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(manifestText), &doc); err != nil {
		return "", fmt.Errorf("manifest does not parse for patching: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("manifest is empty")
	}

	applied := 0

	spec, _ := doc["spec"].(map[string]interface{})
	jobPatch := jobLevelPatch(patch)
	for _, field := range jobFields {
		if value, ok := jobPatch[field]; ok && spec != nil {
			spec[field] = value
			applied++
		}
	}

	containerPatch := containerLevelPatch(patch)
	if containers := podContainers(doc); len(containers) > 0 {
		if main, ok := containers[0].(map[string]interface{}); ok {
			for _, field := range containerFields {
				if value, ok := containerPatch[field]; ok {
					main[field] = value
					applied++
				}
			}
		}
	}

	if applied == 0 {
		logging.Warn("Optimize", "Patch contained no appliable fields, manifest unchanged")
		return manifestText, nil
	}

	rendered, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render patched manifest: %w", err)
	}
	return string(rendered), nil
}

// jobLevelPatch returns the map holding job-level fields: the patch's
// spec block when present, the patch itself otherwise.
func jobLevelPatch(patch map[string]interface{}) map[string]interface{} {
	if spec, ok := patch["spec"].(map[string]interface{}); ok {
		return spec
	}
	return patch
}

// containerLevelPatch returns the map holding container fields. Patches
// arrive shaped like a full Job (spec -> template -> spec -> containers),
// as a bare pod spec, or flat; the first container map found wins and the
// patch itself is the fallback.
func containerLevelPatch(patch map[string]interface{}) map[string]interface{} {
	doc := patch
	if spec, ok := doc["spec"].(map[string]interface{}); ok {
		doc = spec
	}
	if template, ok := doc["template"].(map[string]interface{}); ok {
		doc = template
	}
	if spec, ok := doc["spec"].(map[string]interface{}); ok {
		doc = spec
	}
	if containers, ok := doc["containers"].([]interface{}); ok && len(containers) > 0 {
		if main, ok := containers[0].(map[string]interface{}); ok {
			return main
		}
	}
	return doc
}

func podContainers(doc map[string]interface{}) []interface{} {
	spec, _ := doc["spec"].(map[string]interface{})
	template, _ := spec["template"].(map[string]interface{})
	podSpec, _ := template["spec"].(map[string]interface{})
	containers, _ := podSpec["containers"].([]interface{})
	return containers
}
