// Package pipeline runs the resolver as a CodePipeline Lambda invoke action:
// it pulls the input artifact, resolves every template in it, pushes the
// output artifact and reports the job result.
package pipeline

// CodePipelineEvent is the structure of the event received from CodePipeline
type CodePipelineEvent struct {
	CodePipelineJob struct {
		ID   string  `json:"id"`
		Data JobData `json:"data"`
	} `json:"CodePipeline.job"`
}

type JobData struct {
	ActionConfiguration ActionConfiguration `json:"actionConfiguration"`
	InputArtifacts      []Artifact          `json:"inputArtifacts"`
	OutputArtifacts     []Artifact          `json:"outputArtifacts"`
}

// ActionConfiguration carries the action's user parameters string.
type ActionConfiguration struct {
	Configuration struct {
		FunctionName   string `json:"FunctionName"`
		UserParameters string `json:"UserParameters"`
	} `json:"configuration"`
}

type Artifact struct {
	Location Location `json:"location"`
	Name     string   `json:"name"`
	Revision string   `json:"revision"`
}

type Location struct {
	S3Location S3Location `json:"s3Location"`
	Type       string     `json:"type"`
}

type S3Location struct {
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
}
