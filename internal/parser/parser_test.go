package parser

import (
	"bytes"
	"strings"
	"testing"

	"medirecord-converter/internal/logger"
	"medirecord-converter/internal/metrics"
	"medirecord-converter/internal/record"
	"medirecord-converter/internal/soap"
)

func newTestParser() *Parser {
	return New(soap.New(soap.PolicyHeuristic), nil, nil)
}

func TestParse_SingleVisit(t *testing.T) {
	in := "2024/12/25(水)\n内科 田中医師 14:30\nS > 頭痛の訴え\nO > 血圧120/80"
	got := newTestParser().Parse(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 visit, got %d: %+v", len(got), got)
	}
	want := record.Visit{
		Timestamp:  "2024-12-25T14:30:00Z",
		Department: "内科",
		Subject:    "頭痛の訴え",
		Object:     "血圧120/80",
	}
	if got[0] != want {
		t.Errorf("got %+v\nwant %+v", got[0], want)
	}
}

func TestParse_FullRecord(t *testing.T) {
	in := `2024/12/25(水)
眼科 佐藤医師 14:30 (最終更新 2024/12/25 14:35)
S > 視力低下の訴え
右眼のかすみがある
O > 視力検査
右眼：15mmHg 左眼：14mmHg
A > #近視進行
P > 眼鏡処方箋発行
3ヶ月後再診予定
F > 患者への説明済み
サ > 視力矯正により改善見込み`

	got := newTestParser().Parse(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 visit, got %d", len(got))
	}
	v := got[0]
	if v.Timestamp != "2024-12-25T14:30:00Z" || v.Department != "眼科" {
		t.Errorf("header fields wrong: %+v", v)
	}
	checks := []struct {
		name, got, want string
	}{
		{"subject", v.Subject, "視力低下の訴え\n右眼のかすみがある"},
		{"object", v.Object, "視力検査\n右眼：15mmHg 左眼：14mmHg"},
		{"assessment", v.Assessment, "#近視進行"},
		{"plan", v.Plan, "眼鏡処方箋発行\n3ヶ月後再診予定"},
		{"comment", v.Comment, "患者への説明済み"},
		{"summary", v.Summary, "視力矯正により改善見込み"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestParse_MultipleVisitsSorted(t *testing.T) {
	in := `2024/12/26(木)
内科 田中医師 09:00
S > 翌日の診察
2024/12/25(水)
外科 山田医師 15:00
S > 腹痛の訴え
内科 田中医師 14:30
S > 頭痛の訴え`

	got := newTestParser().Parse(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 visits, got %d", len(got))
	}
	order := []string{got[0].Timestamp, got[1].Timestamp, got[2].Timestamp}
	want := []string{"2024-12-25T14:30:00Z", "2024-12-25T15:00:00Z", "2024-12-26T09:00:00Z"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestParse_SameHeaderMerges(t *testing.T) {
	in := `2024/12/25(水)
内科 田中医師 14:30
S > 頭痛の訴え
O > 血圧120/80
内科 田中医師 14:30
S > めまいもあり
P > 経過観察`

	got := newTestParser().Parse(in)
	if len(got) != 1 {
		t.Fatalf("expected merged visit, got %d", len(got))
	}
	v := got[0]
	if v.Subject != "頭痛の訴え\nめまいもあり" {
		t.Errorf("Subject = %q", v.Subject)
	}
	if v.Object != "血圧120/80" || v.Plan != "経過観察" {
		t.Errorf("merged fields wrong: %+v", v)
	}
}

func TestParse_DateLineDoesNotCloseVisit(t *testing.T) {
	in := `2024/12/25(水)
内科 田中医師 14:30
S > 頭痛の訴え
2024/12/26(木)
続けて記載`

	got := newTestParser().Parse(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 visit, got %d", len(got))
	}
	if got[0].Subject != "頭痛の訴え\n続けて記載" {
		t.Errorf("Subject = %q", got[0].Subject)
	}
	if got[0].Timestamp != "2024-12-25T14:30:00Z" {
		t.Errorf("date line after open must not restamp the visit, got %s", got[0].Timestamp)
	}
}

func TestParse_UnknownDepartmentDiscarded(t *testing.T) {
	in := `2024/12/25(水)
歯科 田中医師 14:30
S > 歯痛の訴え
O > う蝕あり`

	if got := newTestParser().Parse(in); len(got) != 0 {
		t.Errorf("expected no visits, got %+v", got)
	}
}

func TestParse_HeaderWithoutDateDropped(t *testing.T) {
	in := "内科 田中医師 14:30\nS > 頭痛の訴え"
	if got := newTestParser().Parse(in); len(got) != 0 {
		t.Errorf("visit without timestamp must not be emitted, got %+v", got)
	}
}

func TestParse_NoHeadersYieldsEmpty(t *testing.T) {
	for _, in := range []string{
		"",
		"   \n\r\n   \t  ",
		"2024/12/25(水)\nS > 頭痛\nO > 血圧120/80",
		"普通の文章です\nもう一行",
	} {
		got := newTestParser().Parse(in)
		if got == nil || len(got) != 0 {
			t.Errorf("Parse(%q) = %#v, want empty non-nil slice", in, got)
		}
	}
}

func TestParse_CRLFInput(t *testing.T) {
	in := "2024/12/25(水)\r\n内科 田中医師 14:30\r\n\r\nS > 頭痛の訴え\r\n"
	got := newTestParser().Parse(in)
	if len(got) != 1 || got[0].Subject != "頭痛の訴え" {
		t.Errorf("CRLF input parsed wrong: %+v", got)
	}
}

func TestParse_EmergencyHeader(t *testing.T) {
	in := `2024/12/25(水)
外科 山田医師 09:15 (最終更新 2024/12/25 09:20)【救急】
S > 交通事故による外傷
O > 意識清明、外傷なし`

	got := newTestParser().Parse(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 visit, got %d", len(got))
	}
	if got[0].Department != "外科" || got[0].Timestamp != "2024-12-25T09:15:00Z" {
		t.Errorf("got %+v", got[0])
	}
	if got[0].Subject != "交通事故による外傷" {
		t.Errorf("Subject = %q", got[0].Subject)
	}
}

func TestParse_UnmarkedFirstLine_Heuristic(t *testing.T) {
	in := "2024/12/25(水)\n内科 田中医師 14:30\n体温37.2℃\n咳が続く"
	got := newTestParser().Parse(in)
	if len(got) != 1 || got[0].Object != "体温37.2℃\n咳が続く" {
		t.Errorf("heuristic should file under object: %+v", got)
	}
}

func TestParse_UnmarkedFirstLine_CommentPolicy(t *testing.T) {
	p := New(soap.New(soap.PolicyComment), nil, nil)
	in := "2024/12/25(水)\n内科 田中医師 14:30\n体温37.2℃\n咳が続く"
	got := p.Parse(in)
	if len(got) != 1 || got[0].Comment != "体温37.2℃\n咳が続く" || got[0].Object != "" {
		t.Errorf("comment policy should file under comment: %+v", got)
	}
}

func TestParse_AllVisitsComplete(t *testing.T) {
	in := `内科 田中医師 08:00
S > 日付なし
2024/12/25(水)
内科 田中医師 14:30
S > 日付あり
2024/2/30
外科 山田医師 10:00
S > 無効な日付の後`

	for _, v := range newTestParser().Parse(in) {
		if v.Timestamp == "" || v.Department == "" {
			t.Errorf("incomplete visit emitted: %+v", v)
		}
	}
}

func TestParse_RecordsMetricsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.New()
	p := New(nil, logger.NewWriter("PARSER", "info", &buf), m)

	in := `迷子の行
2024/12/25(水)
内科 田中医師 14:30
S > a
内科 田中医師 14:30
S > b
外科 山田医師 15:00`

	got := p.Parse(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(got))
	}
	s := m.Snapshot().Parser
	if s.Parses != 1 || s.VisitsOpened != 3 || s.VisitsMerged != 1 || s.VisitsEmitted != 2 || s.LinesDiscarded != 1 {
		t.Errorf("parser metrics = %+v", s)
	}
	if s.LinesRead != 7 {
		t.Errorf("LinesRead = %d, want 7", s.LinesRead)
	}
	if !strings.Contains(buf.String(), "parse_done") {
		t.Errorf("expected parse_done log line, got: %s", buf.String())
	}
}

func TestSummary(t *testing.T) {
	out := Summary([]record.Visit{{
		Timestamp:  "2024-12-25T14:30:00Z",
		Department: "内科",
		Subject:    "a",
		Plan:       "b",
	}})
	if out != "2024-12-25T14:30:00Z 内科 [subject,plan]\n" {
		t.Errorf("Summary = %q", out)
	}
}
