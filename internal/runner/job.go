package runner

// Job is one subprocess invocation plus its accumulated result state.
//
// Jobs are created at the start of a pipeline run and mutated in place
// across sequential stages. The Err field is sticky: once set it is never
// cleared within the same run, which is how a failed clone prevents a
// doomed checkout attempt in a later stage.
type Job struct {
	// Name identifies the plugin this job belongs to.
	Name string

	// Args is the argument vector to execute. An empty vector means
	// "nothing to run this stage" and the job is skipped.
	Args []string

	// Dir is the working directory for the subprocess.
	Dir string

	// Env holds extra environment entries appended to the parent
	// environment.
	Env []string

	// Message is an optional human-readable progress note reported to
	// the observer when the job completes without error.
	Message string

	// Stdout holds the captured standard output of the last run.
	Stdout string

	// Stderr holds the captured standard error of the last run.
	Stderr string

	// Warnings accumulates stderr text from successful runs.
	Warnings []string

	// Err records the first failure. Jobs with a non-nil Err are
	// excluded from all subsequent stages.
	Err error
}

// Runnable returns true if the job should be executed this stage.
func (j *Job) Runnable() bool {
	return len(j.Args) > 0 && j.Err == nil
}

// Reset prepares the job for the next stage with a new command.
// Accumulated warnings and any sticky error are preserved.
func (j *Job) Reset(args []string) {
	j.Args = args
	j.Message = ""
	j.Stdout = ""
	j.Stderr = ""
}
