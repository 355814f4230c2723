package validate

import "testing"

func TestValidateDimensionsMatch(t *testing.T) {
	ok, msg := validateDimensions(1920, 1080, 1920, 1080)
	if !ok {
		t.Errorf("expected match, got %q", msg)
	}
}

func TestValidateDimensionsMismatch(t *testing.T) {
	ok, _ := validateDimensions(1280, 720, 1920, 1080)
	if ok {
		t.Error("expected mismatch to fail")
	}
}

func TestValidateDimensionsSkippedWhenNoExpectation(t *testing.T) {
	ok, _ := validateDimensions(1280, 720, 0, 0)
	if !ok {
		t.Error("expected validation to pass with no expectation set")
	}
}

func TestValidateDurationWithinTolerance(t *testing.T) {
	ok, _ := validateDuration(10.4, 10.0)
	if !ok {
		t.Error("expected 0.4s diff to be within tolerance")
	}
}

func TestValidateDurationOutsideTolerance(t *testing.T) {
	ok, _ := validateDuration(12.5, 10.0)
	if ok {
		t.Error("expected 2.5s diff to fail tolerance")
	}
}

func TestValidateAudioTracksMatch(t *testing.T) {
	ok, _ := validateAudioTracks(2, 2)
	if !ok {
		t.Error("expected matching track counts to pass")
	}
}

func TestResultIsValidRequiresAllChecks(t *testing.T) {
	r := &Result{IsDimensionsCorrect: true, IsDurationCorrect: true, IsAudioTrackCountCorrect: false}
	if r.IsValid() {
		t.Error("expected IsValid to be false when one check fails")
	}
	if len(r.GetFailures()) != 1 {
		t.Errorf("expected 1 failure, got %d", len(r.GetFailures()))
	}
}

func TestSampleQualityRejectsEmptyPairs(t *testing.T) {
	if _, err := SampleQuality(nil, nil); err == nil {
		t.Error("expected error scoring an empty pair list")
	}
}
