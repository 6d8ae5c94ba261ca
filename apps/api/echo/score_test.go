package echoapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/score"
	"github.com/trezcool/gradebook/core/user"
	testutil "github.com/trezcool/gradebook/tests"
)

type scoreFixture struct {
	fixture
	admin, teacher user.User
	term           academic.Term
	eng, math      academic.Subject
	ama, kofi, esi academic.Student
}

func setupScores(t *testing.T) scoreFixture {
	fx := scoreFixture{fixture: setup(t)}
	fx.admin = testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.gh", "", user.RoleAdmin, true)
	fx.teacher = testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", "", user.RoleTeacher, true)
	fx.term = testutil.CreateTerm(t, fx.academicRepo, "Term 1", "2024/2025", true)
	fx.math = testutil.CreateSubject(t, fx.academicRepo, "MATH", "Mathematics")
	fx.eng = testutil.CreateSubject(t, fx.academicRepo, "ENG", "English")
	fx.ama = testutil.CreateStudent(t, fx.academicRepo, "Ama Owusu", "Basic 6")
	fx.kofi = testutil.CreateStudent(t, fx.academicRepo, "Kofi Asante", "Basic 6")
	fx.esi = testutil.CreateStudent(t, fx.academicRepo, "Esi Appiah", "Basic 6")
	testutil.CreateStudent(t, fx.academicRepo, "Abena Darko", "Basic 5")
	testutil.CreateAssignment(t, fx.academicRepo, fx.teacher.ID, fx.eng.ID, "Basic 6")
	return fx
}

func (fx scoreFixture) entry(std academic.Student, subj academic.Subject, class, exam int) score.ScoreEntry {
	return score.ScoreEntry{StudentID: std.ID, SubjectID: subj.ID, TermID: fx.term.ID, ClassScore: class, ExamScore: exam}
}

func Test_scoreApi_enter(t *testing.T) {
	fx := setupScores(t)
	teacherToken := fx.getToken(t, fx.teacher)

	batch := func(entries ...score.ScoreEntry) []byte {
		return marshalObj(t, score.ScoreBatch{Entries: entries})
	}

	tests := []httpTest{
		{name: "auth required", body: batch(fx.entry(fx.ama, fx.eng, 20, 60)), wantCode: http.StatusUnauthorized},
		{name: "empty batch", token: teacherToken, body: batch(), wantCode: http.StatusBadRequest},
		{name: "negative component", token: teacherToken, body: batch(fx.entry(fx.ama, fx.eng, -1, 60)), wantCode: http.StatusBadRequest},
		{
			name: "class score above cap", token: teacherToken, body: batch(fx.entry(fx.ama, fx.eng, 31, 60)), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"entries[0].class_score": "class score cannot exceed 30"}),
		},
		{
			name: "unknown student", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     batch(score.ScoreEntry{StudentID: uuid.New().String(), SubjectID: fx.eng.ID, TermID: fx.term.ID}),
			wantData: marshalObj(t, map[string]string{"entries[0].student_id": academic.ErrStudentNotFound.Error()}),
		},
		{
			name: "subject not assigned", token: teacherToken, body: batch(fx.entry(fx.ama, fx.math, 20, 60)), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: score.ErrNotAssigned.Error()}),
		},
		{
			name: "teacher enters english", token: teacherToken, wantCode: http.StatusCreated,
			body: batch(fx.entry(fx.ama, fx.eng, 20, 60), fx.entry(fx.kofi, fx.eng, 30, 60)),
		},
		{
			name: "admin enters any subject", token: fx.getToken(t, fx.admin), wantCode: http.StatusCreated,
			body: batch(fx.entry(fx.ama, fx.math, 25, 55), fx.entry(fx.kofi, fx.math, 10, 40)),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/scores"
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, fx.run(t, tt))
		})
	}

	t.Run("re-entry updates the score", func(t *testing.T) {
		rec := fx.run(t, httpTest{method: http.MethodPost, path: "/api/scores", token: teacherToken, body: batch(fx.entry(fx.ama, fx.eng, 25, 60))})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var scores []score.Score
		decode(t, rec, &scores)
		require.Len(t, scores, 1)
		assert.Equal(t, 85, scores[0].Total)
		assert.Equal(t, "A+", scores[0].Grade)
		assert.Equal(t, fx.teacher.ID, scores[0].EnteredBy)

		stored, err := fx.scoreRepo.Query(context.Background(), score.Filter{TermID: fx.term.ID})
		require.NoError(t, err)
		assert.Len(t, stored, 4)
	})

	t.Run("query", func(t *testing.T) {
		var scores []score.Score
		rec := fx.run(t, httpTest{method: http.MethodGet, path: "/api/scores?subject_id=" + fx.math.ID, token: teacherToken})
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &scores)
		assert.Len(t, scores, 2)
	})
}

func Test_scoreApi_broadsheet(t *testing.T) {
	fx := setupScores(t)
	ctx := context.Background()

	_, err := fx.scoreRepo.Upsert(ctx, []score.Score{
		{StudentID: fx.ama.ID, SubjectID: fx.eng.ID, TermID: fx.term.ID, ClassScore: 20, ExamScore: 60, Total: 80, Grade: "A+"},
		{StudentID: fx.ama.ID, SubjectID: fx.math.ID, TermID: fx.term.ID, ClassScore: 25, ExamScore: 55, Total: 80, Grade: "A+"},
		{StudentID: fx.kofi.ID, SubjectID: fx.eng.ID, TermID: fx.term.ID, ClassScore: 30, ExamScore: 60, Total: 90, Grade: "A+"},
		{StudentID: fx.kofi.ID, SubjectID: fx.math.ID, TermID: fx.term.ID, ClassScore: 10, ExamScore: 40, Total: 50, Grade: "D+"},
	})
	require.NoError(t, err)

	teacherToken := fx.getToken(t, fx.teacher)
	want := grading.Broadsheet{
		ClassLevel: "Basic 6",
		TermLabel:  "Term 1 2024/2025",
		Columns:    []grading.Column{{Code: "ENG", SubjectID: fx.eng.ID}, {Code: "MATH", SubjectID: fx.math.ID}},
		Rows: []grading.RankedRow{
			{Position: 1, StudentID: fx.ama.ID, Name: "Ama Owusu", Scores: []int{80, 80}, Total: 160},
			{Position: 2, StudentID: fx.kofi.ID, Name: "Kofi Asante", Scores: []int{90, 50}, Total: 140},
			{Position: 3, StudentID: fx.esi.ID, Name: "Esi Appiah", Scores: []int{0, 0}, Total: 0},
		},
	}

	tests := []httpTest{
		{name: "class level required", path: "/api/broadsheets", wantCode: http.StatusBadRequest},
		{name: "unknown term", path: "/api/broadsheets?class_level=Basic+6&term_id=" + uuid.New().String(), wantCode: http.StatusNotFound},
		{name: "current term", path: "/api/broadsheets?class_level=Basic+6", wantCode: http.StatusOK, wantData: marshalObj(t, want)},
		{name: "explicit term", path: "/api/broadsheets?class_level=Basic+6&term_id=" + fx.term.ID, wantCode: http.StatusOK, wantData: marshalObj(t, want)},
		{
			name: "unknown class level", path: "/api/broadsheets?class_level=Basic+12", wantCode: http.StatusOK,
			wantData: marshalObj(t, grading.Broadsheet{ClassLevel: "Basic 12", TermLabel: "Term 1 2024/2025", Columns: []grading.Column{}, Rows: []grading.RankedRow{}}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.token = teacherToken
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, fx.run(t, tt))
		})
	}

	t.Run("csv", func(t *testing.T) {
		rec := fx.run(t, httpTest{method: http.MethodGet, path: "/api/broadsheets?class_level=Basic+6&format=csv", token: teacherToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, `attachment; filename="basic-6_term-1-2024-2025.csv"`, rec.Header().Get("Content-Disposition"))

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Position,Student ID,Name,ENG,MATH,Total", lines[0])
		assert.Equal(t, "1,"+fx.ama.ID+",Ama Owusu,80,80,160", lines[1])
		assert.Equal(t, "3,"+fx.esi.ID+",Esi Appiah,0,0,0", lines[3])
	})

	t.Run("mail", func(t *testing.T) {
		body := func(recipients ...string) []byte {
			return marshalObj(t, echoapi.MailBroadsheetRequest{ClassLevel: "Basic 6", Recipients: recipients})
		}
		tests := []httpTest{
			{name: "admin required", token: teacherToken, body: body("head@test.gh"), wantCode: http.StatusForbidden},
			{name: "recipients required", token: fx.getToken(t, fx.admin), body: body(), wantCode: http.StatusBadRequest},
			{name: "invalid recipient", token: fx.getToken(t, fx.admin), body: body("lol"), wantCode: http.StatusBadRequest},
			{name: "sent", token: fx.getToken(t, fx.admin), body: body("head@test.gh"), wantCode: http.StatusAccepted},
		}
		for _, tt := range tests {
			tt.method = http.MethodPost
			tt.path = "/api/broadsheets/mail"
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, fx.run(t, tt))
			})
		}

		msgs := fx.mailSvc.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "head@test.gh", msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].TextContent, "3 student(s) ranked across 2 subject(s)")
		require.Len(t, msgs[0].Attachments, 1)
		assert.Equal(t, "basic-6_term-1-2024-2025.csv", msgs[0].Attachments[0].Filename)
	})
}

func Test_scoreApi_grading(t *testing.T) {
	fx := setup(t)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", "", user.RoleTeacher, true)
	token := fx.getToken(t, teacher)

	t.Run("scale", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/grading/scale", token: token, wantCode: http.StatusOK,
			wantData: marshalObj(t, grading.DefaultScale().Bands())}
		checkCodeAndData(t, tt, fx.run(t, tt))
	})

	t.Run("aggregate", func(t *testing.T) {
		aggregate := func(class, exam int) []byte {
			return marshalObj(t, echoapi.AggregateRequest{ClassScore: class, ExamScore: exam})
		}
		tests := []httpTest{
			{name: "negative", body: aggregate(-1, 50), wantCode: http.StatusBadRequest,
				wantData: marshalObj(t, map[string]string{"class_score": "score cannot be negative"})},
			{name: "B+", body: aggregate(20, 50), wantCode: http.StatusOK,
				wantData: marshalObj(t, map[string]interface{}{"total": 70, "grade": "B+", "description": "Good"})},
			{name: "above 100 falls back to the lowest band", body: aggregate(60, 70), wantCode: http.StatusOK,
				wantData: marshalObj(t, map[string]interface{}{"total": 130, "grade": "F", "description": "Fail"})},
			{name: "total overflow", body: aggregate(2147483647, 1), wantCode: http.StatusBadRequest,
				wantData: marshalObj(t, map[string]string{"exam_score": "total is out of range"})},
		}
		for _, tt := range tests {
			tt.method = http.MethodPost
			tt.path = "/api/grading/aggregate"
			tt.token = token
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, fx.run(t, tt))
			})
		}
	})
}
