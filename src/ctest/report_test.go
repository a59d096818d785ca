package ctest

import (
	"errors"
	"testing"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<Site BuildName="Linux-c++" Name="ci-agent-7">
  <Testing>
    <StartDateTime>Oct 01 12:00 UTC</StartDateTime>
    <TestList>
      <Test>./unit_test_wabt</Test>
    </TestList>
    <Test Status="passed">
      <Name>unit_test_wabt</Name>
      <Path>./unittests</Path>
      <FullName>./unit_test_wabt</FullName>
      <FullCommandLine>/build/unittests/unit_test -t !wasm_spec_tests/*</FullCommandLine>
      <Results>
        <NamedMeasurement type="text/string" name="Exit Code"><Value>0</Value></NamedMeasurement>
        <NamedMeasurement type="numeric/double" name="Execution Time"><Value>53.44</Value></NamedMeasurement>
        <Measurement><Value>*** No errors detected</Value></Measurement>
      </Results>
    </Test>
    <Test Status="failed">
      <Name>nodeos_run_test</Name>
      <Results>
        <NamedMeasurement type="numeric/double" name="Execution Time"><Value>12.5</Value></NamedMeasurement>
      </Results>
    </Test>
  </Testing>
</Site>`

func TestDecode_CTestReport(t *testing.T) {
	report, err := Decode([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if report.Name != "ci-agent-7" {
		t.Errorf("Expected site name 'ci-agent-7', got '%s'", report.Name)
	}

	tests := report.Testing.Tests
	if len(tests) != 2 {
		t.Fatalf("Expected 2 tests, got %d", len(tests))
	}

	first := tests[0]
	if first.Name != "unit_test_wabt" {
		t.Errorf("Expected test name 'unit_test_wabt', got '%s'", first.Name)
	}
	if first.Status() != "passed" {
		t.Errorf("Expected status 'passed', got '%s'", first.Status())
	}
	if len(first.Results.NamedMeasurements) != 2 {
		t.Fatalf("Expected 2 measurements, got %d", len(first.Results.NamedMeasurements))
	}
	if got := first.Results.NamedMeasurements[1]; got.Name != "Execution Time" || got.Value != "53.44" {
		t.Errorf("Expected Execution Time=53.44, got %s=%s", got.Name, got.Value)
	}

	if tests[1].Status() != "failed" {
		t.Errorf("Expected status 'failed', got '%s'", tests[1].Status())
	}
}

func TestDecode_LowerCaseAndStatusElement(t *testing.T) {
	xml := `<site><testing><test><status>passed</status><name>a</name></test></testing></site>`

	report, err := Decode([]byte(xml))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(report.Testing.Tests) != 1 {
		t.Fatalf("Expected 1 test, got %d", len(report.Testing.Tests))
	}
	if report.Testing.Tests[0].Status() != "passed" {
		t.Errorf("Expected status 'passed', got '%s'", report.Testing.Tests[0].Status())
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   \n"},
		{name: "malformed", input: "<site><testing></site>"},
		{name: "wrong root", input: "<testsuite name=\"x\"></testsuite>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("Decode(%q) expected error, got nil", tt.input)
			}
		})
	}
}

func TestDecode_EmptyDocumentSentinel(t *testing.T) {
	_, err := Decode([]byte(""))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Decode(\"\") error = %v, want ErrEmptyDocument", err)
	}
}
