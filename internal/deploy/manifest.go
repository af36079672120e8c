package deploy

import (
	"gopkg.in/yaml.v3"

	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/pkg/logging"
)

// PrepareManifest checks the structural preconditions a generated job
// manifest must meet before submission: it parses as YAML, names the job,
// and declares at least one container. The failure messages are fed back
// to the decision service verbatim, so they spell out the missing field.
//
// Generation sometimes drifts on the image reference; when image is
// non-empty and the first container disagrees, the manifest is corrected
// in place rather than bounced.
func PrepareManifest(manifestText, image string) ([]byte, api.WorkloadHandle, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(manifestText), &doc); err != nil {
		return nil, api.WorkloadHandle{}, api.NewWorkloadError(api.FailureManifestInvalid,
			"%v\n%s", err, manifestText)
	}
	if doc == nil {
		return nil, api.WorkloadHandle{}, api.NewWorkloadError(api.FailureManifestInvalid,
			"no job manifest content provided")
	}

	metadata, _ := doc["metadata"].(map[string]interface{})
	name, _ := metadata["name"].(string)
	if name == "" {
		return nil, api.WorkloadHandle{}, api.NewWorkloadError(api.FailureManifestInvalid,
			"Generated YAML is missing required '.metadata.name' field.")
	}
	namespace, _ := metadata["namespace"].(string)
	if namespace == "" {
		namespace = config.DefaultNamespace
	}

	containers := podContainers(doc)
	if len(containers) == 0 {
		return nil, api.WorkloadHandle{}, api.NewWorkloadError(api.FailureManifestInvalid,
			"Generated YAML is missing required '.spec.template.spec.containers' list field.")
	}

	handle := api.WorkloadHandle{Name: name, Namespace: namespace}
	rendered := []byte(manifestText)

	// Assume the first container is the workload.
	if image != "" {
		if main, ok := containers[0].(map[string]interface{}); ok {
			if found, _ := main["image"].(string); found != image {
				logging.Warn("Deploy", "Manifest image %q corrected to %q", found, image)
				main["image"] = image
				fixed, err := yaml.Marshal(doc)
				if err != nil {
					return nil, api.WorkloadHandle{}, api.NewWorkloadError(api.FailureManifestInvalid,
						"failed to re-render manifest after image correction: %v", err)
				}
				rendered = fixed
			}
		}
	}

	return rendered, handle, nil
}

func podContainers(doc map[string]interface{}) []interface{} {
	spec, _ := doc["spec"].(map[string]interface{})
	template, _ := spec["template"].(map[string]interface{})
	podSpec, _ := template["spec"].(map[string]interface{})
	containers, _ := podSpec["containers"].([]interface{})
	return containers
}

