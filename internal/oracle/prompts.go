package oracle

import (
	"fmt"
	"sort"
	"strings"

	"foreman/internal/api"
)

// ManifestRequirements states what a generated workload manifest may and
// may not contain. The deploy agent also hands this to RefineError as the
// scope of allowed changes when a manifest needs repair.
const ManifestRequirements = `- Please deploy to the default namespace.
- Do not create or require abstractions beyond the Job (no ConfigMap or Volume or other types).
- Do not create or require external data. Use example data provided with the app or follow instructions.
- Do not add resources, custom entrypoint/args, affinity, init containers, nodeSelector, or securityContext unless explicitly told to.
- Do NOT add resource requests or limits. The pod should be able to use the full available resources and be Burstable.
- Assume that needed software is on the PATH, and don't specify full paths to executables.
- Set the backoff limit to 1, assuming if it does not work the first time, it will not.
- Set the restartPolicy to Never so we can inspect the logs of failed jobs.
- Keep in mind that an instance vCPU == 1 logical CPU. Apps typically care about logical CPU.
- You are only scoped to edit the Job manifest for Kubernetes.`

// RecipeRequirements is the scope statement for container build recipes.
const RecipeRequirements = `- Optimize for performance using best practices, especially for HPC applications.
- If the application involves MPI, configure it for compatibility for the containerized environment.
- Do not change the name of the application image provided.
- Don't worry about users/permissions - just be root.
- You are only scoped to edit the Dockerfile.`

const generateManifestTemplate = `You are a Kubernetes job generator service expert. I need to create a YAML manifest for a Kubernetes Job in an environment for '%s' for the exact container named '%s'.

Please generate a robust, production-ready manifest.
- The response should only contain the complete YAML manifest inside a single markdown code block.
- Do not add your narration unless it has a "#" prefix to indicate a comment.
- Use succinct comments to explain logic and changes.
- This will be a final YAML manifest - do not tell me to customize something.
%s`

const regenerateManifestTemplate = `Your previous attempt to generate the manifest failed. Please analyze the instruction to fix it and make another try.

%s`

// manifestPrompt renders the generate or regenerate request for a workload
// manifest. A non-empty error message means the last manifest was rejected
// and the instruction explains what went wrong.
func manifestPrompt(req api.ManifestRequest) string {
	if req.ErrorMessage != "" {
		return fmt.Sprintf(regenerateManifestTemplate, req.ErrorMessage)
	}

	requirements := ManifestRequirements
	if req.NoPull {
		requirements += "\n- Please set the imagePullPolicy of the main container to Never."
	}
	prompt := fmt.Sprintf(generateManifestTemplate, req.Environment, req.Container, requirements)
	if req.Task != "" {
		prompt += "\n\nTask: " + req.Task
	}
	return prompt
}

const optimizeTemplate = `Your task is to optimize the running of a cluster workload: %s in %s. You are allowed to request anywhere in the range of available resources, including count and type. Here are the available resources:
%s
Here is the current job manifest:
` + "```yaml\n%s\n```" + `
Here is the log of the last run:
%s
Please return ONLY a json structure with a limited set of fields, with keys organized the same as a Kubernetes Job, e.g., spec -> template -> spec. The fields should map 1:1 into a pod spec serialized as json. Do not make requests that lead to Guaranteed pods. DO NOT CHANGE PROBLEM SIZE PARAMETERS OR COMMAND. You can change args. Remember that to get full node resources you often have to ask for slightly less than what is available.`

const optimizeVerdictTemplate = `You also need to decide if the job is worth retrying again. You have made %d attempts and here are the figures of merit for those attempts:
%s
Please include in your response a "decision" field that is RETRY or STOP. You should keep retrying until you determine the application run is optimized. You MUST add a "reason" field that briefly summarizes the decision. When you decide to stop, you MUST include the final, optimized configuration in the "manifest" field (even if from a previous run).`

// optimizePrompt renders the resource-shape question for the last run.
func optimizePrompt(req api.OptimizeRequest) string {
	prompt := fmt.Sprintf(optimizeTemplate, req.Directive, req.Environment, req.Resources, req.Manifest, req.Log)
	if req.BuildFile != "" {
		prompt += fmt.Sprintf("\nHere is the Dockerfile that helped to generate the application.\n%s\n", req.BuildFile)
	}
	prompt += "\n\n" + fmt.Sprintf(optimizeVerdictTemplate, req.Attempt, renderMerits(req.History))
	return prompt
}

// renderMerits lists figure of merit history, one line per attempt.
func renderMerits(history []api.FigureOfMerit) string {
	if len(history) == 0 {
		return "No figures of merit recorded yet."
	}
	var lines []string
	for _, fom := range history {
		lines = append(lines, fmt.Sprintf("- attempt %d: %s", fom.Attempt, fom.Value))
	}
	return strings.Join(lines, "\n")
}

const scalingTemplate = `You are a scaling study agent. You are running a scaling study for an application, and need to orchestrate execution at each size, a number of nodes. You are currently working on size %d. Remaining sizes in the study: %s.

Here are your instructions:

%s

Here are the converged results so far:
%s

You MUST return a JSON response with a "decision" to PROCEED to the next size or STOP the study, along with a "reason". You MUST stop the study after completing the last size OR when the application stops strong or weak scaling.`

// scalingPrompt renders the proceed-or-stop question for a scaling study.
func scalingPrompt(req api.ScalingRequest) string {
	var sizes []string
	for _, size := range req.RemainingSizes {
		sizes = append(sizes, fmt.Sprintf("%d", size))
	}
	remaining := "none"
	if len(sizes) > 0 {
		remaining = strings.Join(sizes, ", ")
	}

	history := "No sizes completed yet."
	if len(req.History) > 0 {
		var lines []string
		for _, record := range req.History {
			lines = append(lines, fmt.Sprintf("- size %d: %s", record.Size, record.FigureOfMerit))
		}
		history = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(scalingTemplate, req.CurrentSize, remaining, req.Directive, history)
}

const recoveryTemplate = `You are an expert workflow troubleshooter. A step in a workflow has failed and reached its maximum number of retries. This could mean that we need to go back in the workflow and redo work. Your job is to analyze the error and recommend a single, corrective step. The steps, each associated with an agent, you can choose from are as follows:

Available Agents:
%s

The above is in the correct order, and ends on the agent that ran last with the failure (%s). The error message of the last step is the following:

%s

Your job is to analyze the error message to determine the root cause, and decide which agent is best suited to fix this specific error. Formulate a JSON object for the corrective step with two keys: "agent_name" and "task_description". The new "task_description" MUST be a clear instruction for the agent to correct the specific error. Provide only the single JSON object for the corrective step in your response.`

// recoveryPrompt renders the corrective step question, including the
// catalog of registered agents.
func recoveryPrompt(req api.RecoveryRequest) string {
	var catalog []string
	for _, info := range req.Agents {
		catalog = append(catalog, fmt.Sprintf("- %s: %s", info.Name, info.Description))
	}
	return fmt.Sprintf(recoveryTemplate, strings.Join(catalog, "\n"), req.FailedAgent, req.ErrorMessage)
}

const expressionTemplate = `You are a result parsing agent and expert. Your job is to look at an output log, and derive a regular expression that can be used to extract an exact metric of interest. For this task you should do the following:

%s

And here is an example log:

%s

You should ONLY return the string portion of a regular expression that can be used to find the metric of interest. Do not add any additional commentary.`

// expressionPrompt renders the figure of merit extraction question.
// Previously rejected expressions are appended so the next proposal can
// avoid them.
func expressionPrompt(req api.ExpressionRequest) string {
	prompt := fmt.Sprintf(expressionTemplate, req.Requirement, req.Log)
	for _, rejected := range req.Rejected {
		prompt += fmt.Sprintf("\nHere is a previous unsuccessful attempt: %s", rejected)
	}
	return prompt
}

// ReturnToManagerMarker in a refined instruction means the failure cannot
// be fixed within the retrying agent's scope and control must go back to
// the orchestrator.
const ReturnToManagerMarker = "RETURN TO MANAGER"

const refineTemplate = `You are a debugging agent and expert. We attempted the following piece of code and had problems. Please identify the error and advise for how to fix the error. The agent you are returning to can only make scoped changes, which we provide below. If you determine the issue cannot be resolved by changing one of these files, we will need to return to another agent. In this case, please provide "RETURN TO MANAGER" anywhere in your response.
%s
`

// refinePrompt renders the error refinement question for a retrying agent.
func refinePrompt(req api.RefineRequest) string {
	prompt := fmt.Sprintf(refineTemplate, req.Scope)

	if len(req.Facts) > 0 {
		prompt += "Here is additional context to guide your instruction. YOU CANNOT CHANGE THESE VARIABLES OR FILES OR SUGGEST TO DO SO.\n"
		keys := make([]string, 0, len(req.Facts))
		for key := range req.Facts {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := req.Facts[key]
			if key == "details" {
				key = "details from user"
			}
			prompt += fmt.Sprintf("%s is defined as: %s\n", key, value)
		}
	}

	prompt += fmt.Sprintf("Here is the code:\n%s\nAnd here is the error output:\n%s", req.Artifact, req.ErrorMessage)
	return prompt
}

const buildRecipeTemplate = `Act as a Dockerfile builder service expert.
I need to create a Dockerfile for an application '%s'.
The target environment is '%s'.

Please generate a robust, production-ready Dockerfile.
- The response should ONLY contain the complete Dockerfile.
- Do not add your narration unless it has a "#" prefix to indicate a comment.
%s`

const rebuildRecipeTemplate = `Your previous Dockerfile build has failed. Here is instruction for how to fix it.

Please analyze the instruction and your previous Dockerfile, and provide a corrected version.
- The response should only contain the complete, corrected Dockerfile inside a single markdown code block.
- Use succinct comments in the Dockerfile to explain build logic and changes.
- Follow the same guidelines as previously instructed.

%s

Here is the previous Dockerfile:
%s`

// recipePrompt renders the build or rebuild request for a container
// recipe. A non-empty error message plus a previous recipe switches to
// the rebuild instruction.
func recipePrompt(req api.RecipeRequest) string {
	if req.ErrorMessage != "" && req.BuildFile != "" {
		return fmt.Sprintf(rebuildRecipeTemplate, req.ErrorMessage, req.BuildFile)
	}
	prompt := fmt.Sprintf(buildRecipeTemplate, req.Application, req.Environment, RecipeRequirements)
	if req.Task != "" {
		prompt += "\n\nTask: " + req.Task
	}
	return prompt
}

const costTemplate = `You are a cost estimation agent. We are selecting an instance type to minimize cost. Please read the application and environment needs and suggest an instance type that will minimize cost. You should account for application needs and estimated time to run, and the total accumulated instance cost.
%s

The target environment is '%s'. Here is the workload manifest:
%s

You MUST return a JSON list with one entry per result. For each result, please include the 'application', 'environment', 'instance', 'type' (cpu or gpu), a 'reason' that explains your choice, and an 'estimate' string with the estimated cost in USD. If the application can use GPU, please suggest both types.`

// costPrompt renders the instance cost question.
func costPrompt(req api.CostRequest) string {
	return fmt.Sprintf(costTemplate, req.Instruction, req.Environment, req.Manifest)
}

// repromptMalformed appends the unusable response to the original prompt
// so the next attempt can see what it returned.
func repromptMalformed(base, response string) string {
	return strings.TrimSpace(base) + " Your first attempt was not successful:\n" + response
}
