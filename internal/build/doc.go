// Package build implements the image build step.
//
// The agent asks the decision service for a container build recipe,
// materializes it in a throwaway build context, and drives the
// configured CLI (docker by default) to produce a tagged image. Build
// failures are refined into corrective instructions and fed back into
// recipe regeneration until the image builds or the attempt budget is
// spent. The recipe and the image reference stay in the run context for
// the deploy step.
package build
