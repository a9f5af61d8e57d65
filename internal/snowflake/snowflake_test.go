package snowflake

import "testing"

func TestSetupSnowflake(t *testing.T) {
	err := Setup(3)
	if err != nil {
		t.Error(err)
	}
}

func TestGenerateSnowflake(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Error(err)
	}
	if id == 0 {
		t.Error("Expected a non-zero snowflake")
	}
}

func TestExtractSnowflake(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatal(err)
	}

	extracted := Extract(id)
	if extracted.WorkerID != 3 {
		t.Errorf("Expected worker ID 3, got %d", extracted.WorkerID)
	}
	if extracted.Timestamp != ExtractTimestamp(id) {
		t.Error("Extract and ExtractTimestamp disagree on the timestamp")
	}
}

func TestSnowflakeIncrementOverflow(t *testing.T) {
	for range 100000 {
		_, err := Generate()
		if err != nil {
			return
		}
	}
	t.Error("Expected increment overflow, but there wasn't")
}
