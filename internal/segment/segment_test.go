package segment

import (
	"testing"

	"medirecord-converter/internal/record"
)

func TestExtractDate(t *testing.T) {
	cases := []struct {
		line string
		want string
		ok   bool
	}{
		{"2024/12/25(水)", "2024-12-25T", true},
		{"2024/12/25（水）", "2024-12-25T", true},
		{"2024/12/25", "2024-12-25T", true},
		{"2024/1/5", "2024-01-05T", true},
		{"2024/2/30", "", false},
		{"2024/13/01", "", false},
		{"2023/2/29(水)", "", false},
		{"2024/2/29(木)", "2024-02-29T", true},
		{"2024/12/25(水) 追記", "", false},
		{"2024/12/25(X)", "", false},
		{"12/25", "", false},
		{"", "", false},
		{"内科 田中医師 14:30", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractDate(c.line)
		if ok != c.ok || got != c.want {
			t.Errorf("ExtractDate(%q) = (%q, %v), want (%q, %v)", c.line, got, ok, c.want, c.ok)
		}
	}
}

func TestCombineTimestamp(t *testing.T) {
	cases := []struct {
		date, clock, want string
	}{
		{"2024-12-25T", "14:30", "2024-12-25T14:30:00Z"},
		{"2024-12-25T", "9:05", "2024-12-25T09:05:00Z"},
		{"", "14:30", ""},
		{"2024-12-25T", "", ""},
		{"2024-12-25T", "1430", ""},
		{"2024-12-25T", "25:00", ""},
		{"2024-12-25T", "10:75", ""},
		{"2024-12-25T", "aa:bb", ""},
		{"garbage", "10:00", ""},
	}
	for _, c := range cases {
		if got := CombineTimestamp(c.date, c.clock); got != c.want {
			t.Errorf("CombineTimestamp(%q, %q) = %q, want %q", c.date, c.clock, got, c.want)
		}
	}
}

func TestExtractHeader(t *testing.T) {
	cases := []struct {
		name string
		line string
		dept string
		time string
	}{
		{"plain", "内科 田中医師 14:30", "内科", "14:30"},
		{"full-width space", "外科　佐藤医師　9:15", "外科", "9:15"},
		{"last updated", "眼科 佐藤医師 14:30 (最終更新 2024/12/25 14:35)", "眼科", "14:30"},
		{"full-width parens", "眼科 佐藤医師 14:30（最終更新 2024/12/25 14:35）", "眼科", "14:30"},
		{"updated then emergency", "外科 山田医師 09:15 (最終更新 2024/12/25 09:20)【救急】", "外科", "09:15"},
		{"emergency then updated", "外科 山田医師 09:15 【救急】(最終更新 2024/12/25 09:20)", "外科", "09:15"},
		{"emergency only", "外科 山田医師 09:15【救急】", "外科", "09:15"},
		{"ENT long", "耳鼻咽喉科 鈴木 10:00", "耳鼻咽喉科", "10:00"},
		{"ENT short", "耳鼻科 鈴木 10:00", "耳鼻科", "10:00"},
		{"orthopedics", "整形外科 高橋 11:45", "整形外科", "11:45"},
		{"loose time", "透析 担当者不明11:00", "透析", "11:00"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, ok := ExtractHeader(c.line)
			if !ok {
				t.Fatalf("ExtractHeader(%q) did not match", c.line)
			}
			if h.Department != c.dept || h.Time != c.time {
				t.Errorf("got (%q, %q), want (%q, %q)", h.Department, h.Time, c.dept, c.time)
			}
		})
	}
}

func TestExtractHeader_NoMatch(t *testing.T) {
	for _, line := range []string{
		"",
		"2024/12/25(水)",
		"内科 田中医師",
		"歯科 田中医師 14:30",
		"S > 頭痛の訴え 14:30",
	} {
		if h, ok := ExtractHeader(line); ok {
			t.Errorf("ExtractHeader(%q) unexpectedly matched: %+v", line, h)
		}
	}
}

func TestMatchMarker(t *testing.T) {
	cases := []struct {
		line    string
		section record.Section
		content string
		ok      bool
	}{
		{"S > 頭痛の訴え", record.SectionSubject, "頭痛の訴え", true},
		{"S>頭痛", record.SectionSubject, "頭痛", true},
		{"O ＞ 血圧120/80", record.SectionObject, "血圧120/80", true},
		{"O＞血圧", record.SectionObject, "血圧", true},
		{"A 高血圧症", record.SectionAssessment, "高血圧症", true},
		{"P　降圧薬処方", record.SectionPlan, "降圧薬処方", true},
		{"F > 説明済み", record.SectionComment, "説明済み", true},
		{"サ > 改善見込み", record.SectionSummary, "改善見込み", true},
		{"ｻ > 改善見込み", record.SectionSummary, "改善見込み", true},
		{"Ｓ＞全角マーカー", record.SectionSubject, "全角マーカー", true},
		{"Ｐ　ｶﾙﾃ記載", record.SectionPlan, "ｶﾙﾃ記載", true},
		{"ｻ＞１２０／８０", record.SectionSummary, "１２０／８０", true},
		{"S >", record.SectionSubject, "", true},
		{"Sat", record.SectionUnset, "", false},
		{"頭痛", record.SectionUnset, "", false},
	}
	for _, c := range cases {
		s, content, ok := MatchMarker(c.line)
		if s != c.section || content != c.content || ok != c.ok {
			t.Errorf("MatchMarker(%q) = (%v, %q, %v), want (%v, %q, %v)",
				c.line, s, content, ok, c.section, c.content, c.ok)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want Kind
	}{
		{"", KindBlank},
		{"   　", KindBlank},
		{"内科 田中医師 14:30", KindHeader},
		{"2024/12/25(水)", KindDate},
		{"S > 頭痛", KindMarker},
		{"2024/12/25 追記", KindAnnotation},
		{"【救急】搬送", KindAnnotation},
		{"最終更新者 田中", KindAnnotation},
		{"めまいも併発している", KindText},
	}
	for _, c := range cases {
		if got := Classify(c.line).Kind; got != c.want {
			t.Errorf("Classify(%q).Kind = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestClassify_CarriesPayload(t *testing.T) {
	h := Classify("  内科 田中医師 14:30  ")
	if h.Header.Department != "内科" || h.Header.Time != "14:30" || h.Text != "内科 田中医師 14:30" {
		t.Errorf("header payload wrong: %+v", h)
	}
	d := Classify("2024/12/25(水)")
	if d.Date != "2024-12-25T" {
		t.Errorf("date payload wrong: %+v", d)
	}
	m := Classify("O > 血圧120/80")
	if m.Section != record.SectionObject || m.Content != "血圧120/80" {
		t.Errorf("marker payload wrong: %+v", m)
	}
}

func TestKindString(t *testing.T) {
	if KindHeader.String() != "header" || Kind(42).String() != "unknown" {
		t.Errorf("unexpected Kind names: %s, %s", KindHeader, Kind(42))
	}
}

func TestClassify_FullWidth(t *testing.T) {
	d := Classify("２０２４／１２／２５（水）")
	if d.Kind != KindDate || d.Date != "2024-12-25T" {
		t.Errorf("full-width date = %+v", d)
	}
	h := Classify("内科　田中医師　１４：３０")
	if h.Kind != KindHeader || h.Header.Time != "14:30" || h.Text != "内科　田中医師　１４：３０" {
		t.Errorf("full-width header = %+v", h)
	}
	m := Classify("O > 血圧１２０／８０")
	if m.Content != "血圧１２０／８０" {
		t.Errorf("marker content must keep original width, got %q", m.Content)
	}
	fm := Classify("Ｓ＞全角マーカー")
	if fm.Kind != KindMarker || fm.Section != record.SectionSubject || fm.Content != "全角マーカー" {
		t.Errorf("full-width marker = %+v", fm)
	}
}

func TestFold(t *testing.T) {
	cases := map[string]string{
		"１２：３０": "12:30",
		"（水）":   "(水)",
		"ｻﾏﾘｰ":  "サマリー",
		"内科":    "内科",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDepartments_ReturnsCopy(t *testing.T) {
	d := Departments()
	if len(d) == 0 || d[0] != "内科" {
		t.Fatalf("Departments() = %v", d)
	}
	d[0] = "歯科"
	if Departments()[0] != "内科" {
		t.Error("mutating the returned slice changed the vocabulary")
	}
	if _, ok := ExtractHeader("歯科 田中医師 14:30"); ok {
		t.Error("歯科 is not a recognized department")
	}
}
