package diagnostics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"test-metrics/src/results"
)

var allow = NewAllowList("eosio", "eosio-lrt")

func failed(name string) results.TestResult {
	return results.TestResult{Name: name, Outcome: results.Failed, Duration: "1.0"}
}

func logOf(lines ...string) string {
	return strings.Join(lines, "\n")
}

func TestClassify_PassedShortCircuits(t *testing.T) {
	log := logOf(
		"start 1: foo",
		"1/1 test #1: foo ........ passed 1.00 sec",
		"boost::exception: would match if classified",
	)
	test := results.TestResult{Name: "foo", Outcome: results.Passed, Duration: "1.00"}

	for _, pipeline := range []string{"eosio", "not-allowed"} {
		got := Classify(test, pipeline, log, allow)
		assert.Nil(t, got.ErrorMessage)
		assert.Nil(t, got.StackTrace)
		assert.Equal(t, 2, got.LineNumber)
	}
}

func TestClassify_PassedMarkerMissing(t *testing.T) {
	test := results.TestResult{Name: "ghost", Outcome: results.Passed}

	got := Classify(test, "eosio", "nothing here", allow)
	assert.Nil(t, got.ErrorMessage)
	assert.Equal(t, 0, got.LineNumber)
}

func TestClassify_NotAllowListed(t *testing.T) {
	log := logOf("x", "test #1: foo ....***exception: segfault 0.50 sec")

	got := Classify(failed("foo"), "some-other-pipeline", log, allow)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, MsgNotEnabled, *got.ErrorMessage)
	assert.Nil(t, got.StackTrace)
	assert.Equal(t, 2, got.LineNumber)
}

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		name        string
		test        results.TestResult
		log         string
		wantMsg     string
		wantLine    int
		wantTrace   string
		wantNoTrace bool
	}{
		{
			name:        "not run",
			test:        failed("foo"),
			log:         logOf("2/3 test #2: foo ....***not run 0.00 sec"),
			wantMsg:     "test not run",
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name:        "timeout",
			test:        failed("foo"),
			log:         logOf("test #3: foo ....***timeout 1500.02 sec", "still running"),
			wantMsg:     "test timeout",
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name:        "timeout with zero seconds is not a timeout",
			test:        failed("foo"),
			log:         logOf("test #3: foo ....***timeout 0.00 sec"),
			wantMsg:     MsgUncategorized,
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name:        "exception status on result line",
			test:        failed("foo"),
			log:         logOf("test #4: foo ....***exception: segfault 0.50 sec"),
			wantMsg:     "segfault",
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name:        "fc exception on second non-empty line",
			test:        failed("foo"),
			log:         logOf("test #5: foo ....***failed 3.00 sec", "", "error 12:00:01 fc::assert_exception: assert exception"),
			wantMsg:     FCTag + "assert_exception",
			wantLine:    3,
			wantNoTrace: true,
		},
		{
			name:        "ctest harness error",
			test:        failed("foo"),
			log:         logOf("test #6: foo ....***failed 1.00 sec", "running", "ctest: test binary missing"),
			wantMsg:     CTestTag + "test binary missing",
			wantLine:    3,
			wantNoTrace: true,
		},
		{
			name: "boost exception with stack trace",
			test: failed("nodeos_run_test"),
			log: logOf(
				"1/5 test #1: unit_test_wabt ....... passed 53.44 sec",
				"2/5 test #2: nodeos_run_test ....***failed 12.50 sec",
				"info 2019 thread-0 main.cpp:123 doing stuff[0m",
				"error: boost::wrapexcept<exception>: something broke",
			),
			wantMsg:   BoostTag + "boost::wrapexcept<exception>: something broke",
			wantLine:  4,
			wantTrace: "0 main.cpp:123 doing stuff",
		},
		{
			name:        "boost exception without thread line",
			test:        failed("foo"),
			log:         logOf("test #7: foo ....***failed 1.00 sec", "boost exception caught"),
			wantMsg:     BoostTag,
			wantLine:    2,
			wantNoTrace: true,
		},
		{
			name: "unit test exception",
			test: failed("unit_test_x"),
			log: logOf(
				"test #8: unit_test_x ....***failed 2.00 sec",
				`/src/tests/foo.cpp(42): error: in "suite/case": exception: bad_alloc`,
				"thread-7 frame[0m",
			),
			wantMsg:   `in "suite/case": exception: bad_alloc`,
			wantLine:  2,
			wantTrace: "7 frame",
		},
		{
			name:        "exception line ignored for non unit test names",
			test:        failed("integration"),
			log:         logOf("test #8: integration ....***failed 2.00 sec", "x", "error: exception: bad_alloc"),
			wantMsg:     MsgUncategorized,
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name:        "uncategorized",
			test:        failed("foo"),
			log:         logOf("test #9: foo ....***failed 1.00 sec", "just output"),
			wantMsg:     MsgUncategorized,
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name: "rules only see the test's own slice",
			test: failed("foo"),
			log: logOf(
				"test #10: foo ...***failed 1.0 sec",
				"ok",
				"test #11: bar ... passed 1.0 sec",
				"ctest: error in bar",
			),
			wantMsg:     MsgUncategorized,
			wantLine:    1,
			wantNoTrace: true,
		},
		{
			name:        "marker not found",
			test:        failed("ghost"),
			log:         logOf("test #1: foo ... passed 1.0 sec"),
			wantMsg:     MsgUncategorized,
			wantLine:    0,
			wantNoTrace: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.test, "eosio", tt.log, allow)

			require.NotNil(t, got.ErrorMessage)
			assert.Equal(t, tt.wantMsg, *got.ErrorMessage)
			assert.Equal(t, tt.wantLine, got.LineNumber)
			if tt.wantNoTrace {
				assert.Nil(t, got.StackTrace)
			} else {
				require.NotNil(t, got.StackTrace)
				assert.Equal(t, tt.wantTrace, *got.StackTrace)
			}
		})
	}
}

func TestClassifier_SharedLog(t *testing.T) {
	log := NewLog(logOf(
		"1/2 test #1: alpha ....***timeout 60.00 sec",
		"2/2 test #2: beta ....***not run 0.00 sec",
	))
	c := NewClassifier(allow)

	alpha := c.Classify(failed("alpha"), "eosio-lrt", log)
	beta := c.Classify(failed("beta"), "eosio-lrt", log)

	assert.Equal(t, "test timeout", *alpha.ErrorMessage)
	assert.Equal(t, 1, alpha.LineNumber)
	assert.Equal(t, "test not run", *beta.ErrorMessage)
	assert.Equal(t, 2, beta.LineNumber)
}

func TestClassifier_CustomRules(t *testing.T) {
	c := &Classifier{
		Allow: allow,
		Rules: []Rule{{
			Name:  "always",
			Apply: func(s *Slice) (Match, bool) {
				return Match{Message: "custom", Line: s.First()}, true
			},
		}},
	}

	got := c.Classify(failed("foo"), "eosio", NewLog("test #1: foo ... failed 1 sec"))
	assert.Equal(t, "custom", *got.ErrorMessage)
}

func TestTrailingSeconds(t *testing.T) {
	v, ok := trailingSeconds("test #1: x ...***timeout 12.5 sec")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = trailingSeconds("no duration here")
	assert.False(t, ok)
}

func TestAllowList(t *testing.T) {
	a := NewAllowList("eosio")
	assert.True(t, a.Contains("eosio"))
	assert.False(t, a.Contains("EOSIO"))
	assert.False(t, AllowList(nil).Contains("eosio"))
}
