package protocol

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProtocols(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocols.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const testProtocols = `{
  "protocols": [
    {
      "id": "p_aftershock_calm",
      "name": "余震安抚",
      "priority": 50,
      "trigger": {
        "any_of": [{"tags_any": ["scn_aftershock"]}],
        "none_of": [{"event": "imu_strong_shake"}]
      },
      "actions": [
        {"type": "tts", "text": "余震是正常现象，保持蹲姿护住头部。"},
        {"type": "led", "pattern": {"mode": "breathe", "color": "amber"}}
      ]
    },
    {
      "id": "p_strong_shake",
      "name": "强震应对",
      "priority": 100,
      "trigger": {"all_of": [{"event": "imu_strong_shake"}]},
      "actions": [
        {"type": "tts", "text": "蹲下，靠墙，护住头颈！"},
        {"type": "screen", "text": "伏地 遮挡 手抓牢", "ms": 5000}
      ]
    },
    {
      "id": "p_low_battery",
      "name": "低电量提示",
      "priority": 10,
      "trigger": {"all_of": [{"event": "battery_low"}]},
      "actions": [{"type": "tts", "text": "电量不足，请节约使用。"}]
    }
  ]
}`

func TestLoad_SortsByPriority(t *testing.T) {
	e, err := Load(writeProtocols(t, testProtocols))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := make([]string, 0, len(e.protocols))
	for _, p := range e.protocols {
		got = append(got, p.ID)
	}
	want := []string{"p_strong_shake", "p_aftershock_calm", "p_low_battery"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestLoad_RejectsMissingID(t *testing.T) {
	path := writeProtocols(t, `{"protocols": [{"priority": 1, "trigger": {"all_of": [{"event": "x"}]}}]}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for protocol without id")
	}
}

func TestLoad_RejectsEmptyConditionList(t *testing.T) {
	path := writeProtocols(t, `{"protocols": [{"id": "p", "trigger": {"all_of": [{"tags_all": []}]}}]}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for tag condition with no tags")
	}
}

func TestLoad_RejectsEmptyEventName(t *testing.T) {
	path := writeProtocols(t, `{"protocols": [{"id": "p", "trigger": {"all_of": [{"event": ""}]}}]}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for event condition with empty name")
	}
}

func TestMatch_HighestPriorityWins(t *testing.T) {
	e, err := Load(writeProtocols(t, testProtocols))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// both the strong-shake and aftershock protocols could fire on the tag,
	// but the event drives the higher-priority one (and excludes the other
	// through its none_of)
	p := e.Match("又震了", []string{"scn_aftershock"}, []string{"imu_strong_shake"})
	if p == nil || p.ID != "p_strong_shake" {
		t.Fatalf("match = %+v, want p_strong_shake", p)
	}
}

func TestMatch_NoneOfExcludes(t *testing.T) {
	e, err := Load(writeProtocols(t, testProtocols))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p := e.Match("又震了", []string{"scn_aftershock"}, nil)
	if p == nil || p.ID != "p_aftershock_calm" {
		t.Fatalf("match = %+v, want p_aftershock_calm", p)
	}
	if len(p.Actions) != 2 || p.Actions[0].Type != ActionTTS {
		t.Errorf("actions = %+v", p.Actions)
	}
}

func TestMatch_NoHit(t *testing.T) {
	e, err := Load(writeProtocols(t, testProtocols))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if p := e.Match("我口渴", []string{"res_water"}, nil); p != nil {
		t.Fatalf("match = %+v, want nil", p)
	}
}

func TestMatch_EmptyTriggerNeverMatches(t *testing.T) {
	e, err := Load(writeProtocols(t, `{"protocols": [{"id": "p_empty", "priority": 999, "trigger": {}}]}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if p := e.Match("任何内容", []string{"scn_aftershock"}, []string{"imu_strong_shake"}); p != nil {
		t.Fatalf("match = %+v, want nil for empty trigger", p)
	}
}
