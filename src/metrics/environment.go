package metrics

import (
	"errors"
	"regexp"
	"strings"
)

// Environment variable names read from a job's environment.
const (
	EnvAgentName   = "BUILDKITE_AGENT_NAME"
	EnvAgentRole   = "BUILDKITE_AGENT_META_DATA_ROLE"
	EnvAgentQueue  = "BUILDKITE_AGENT_META_DATA_QUEUE"
	EnvBranch      = "BUILDKITE_BRANCH"
	EnvBuildNumber = "BUILDKITE_BUILD_NUMBER"
	EnvCommit      = "BUILDKITE_COMMIT"
	EnvLabel       = "BUILDKITE_LABEL"
	EnvPipeline    = "BUILDKITE_PIPELINE_SLUG"
	EnvRepo        = "BUILDKITE_REPO"
)

// UnknownOS is reported for labels no rule recognizes.
const UnknownOS = "Unknown"

// ErrMissingLabel means the job environment has no BUILDKITE_LABEL.
var ErrMissingLabel = errors.New("job environment has no " + EnvLabel)

type osRule struct {
	pattern *regexp.Regexp
	name    string
}

// osRules are tried in order against the lower-cased job label.
var osRules = []osRule{
	{regexp.MustCompile(`amazon|aws`), ""},
	{regexp.MustCompile(`centos`), "CentOS 7"},
	{regexp.MustCompile(`fedora`), "Fedora 27"},
	{regexp.MustCompile(`high.*sierra`), "High Sierra"},
	{regexp.MustCompile(`mojave`), "Mojave"},
	{regexp.MustCompile(`ubuntu.*16.*04`), "Ubuntu 16.04"},
	{regexp.MustCompile(`ubuntu.*18.*04`), "Ubuntu 18.04"},
	{regexp.MustCompile(`docker`), "Docker"},
}

var amazonLinux2 = regexp.MustCompile(`(amazon|aws).*2`)

// InferOS derives an operating system name from a job label such as
// ":ubuntu: Ubuntu 18.04 - Unit Tests".
func InferOS(label string) (string, error) {
	if strings.TrimSpace(label) == "" {
		return "", ErrMissingLabel
	}

	l := strings.ToLower(label)
	for _, rule := range osRules {
		if !rule.pattern.MatchString(l) {
			continue
		}
		if rule.name != "" {
			return rule.name, nil
		}
		if amazonLinux2.MatchString(l) {
			return "Amazon Linux 2", nil
		}
		return "Amazon Linux 1", nil
	}
	return UnknownOS, nil
}

var (
	repoPrefix = regexp.MustCompile(`^git@github\.com:(eosio/)?`)
	repoSuffix = regexp.MustCompile(`\.git$`)
)

// NormalizeRepo strips the GitHub SSH prefix, an optional EOSIO owner and the
// .git suffix: "git@github.com:EOSIO/eos.git" becomes "eos".
func NormalizeRepo(repo string) string {
	if loc := repoPrefix.FindStringIndex(strings.ToLower(repo)); loc != nil {
		repo = repo[loc[1]:]
	}
	return repoSuffix.ReplaceAllString(repo, "")
}

// agentRole prefers the role tag and falls back to the queue.
func agentRole(env map[string]string) string {
	if role := env[EnvAgentRole]; role != "" {
		return role
	}
	return env[EnvAgentQueue]
}
