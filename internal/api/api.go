package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victornm/phishlms/internal/auth"
	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
	"github.com/victornm/phishlms/internal/progress"
	"github.com/victornm/phishlms/internal/score"
)

type Questions interface {
	GetPublicQuestionSet(ctx context.Context) ([]domain.QuestionView, error)
}

type Scorer interface {
	Evaluate(ctx context.Context, req score.EvaluateRequest) (*domain.ExamResult, error)
	ListResults(ctx context.Context, req score.ListResultsRequest) ([]domain.ExamResult, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	CompleteCourse(ctx context.Context, userID, courseID string) error
}

type Catalog interface {
	ListCourses(ctx context.Context, tier domain.Classification) ([]domain.Course, error)
	GetCourse(ctx context.Context, courseID string) (*domain.Course, error)
	ListContent(ctx context.Context, courseID string) ([]domain.TrainingContent, error)
}

type Progress interface {
	GetProgress(ctx context.Context, req progress.GetProgressRequest) (*domain.ProgressSummary, error)
}

type Config struct {
	Router    gin.IRouter
	Auth      *auth.Verifier
	Questions Questions
	Scorer    Scorer
	Profiles  Profiles
	Catalog   Catalog
	Progress  Progress
	// TimeLimit is advertised to clients with the question set. Zero means no limit.
	TimeLimit time.Duration
}

type API struct {
	qs       Questions
	scorer   Scorer
	profiles Profiles
	catalog  Catalog
	progress Progress
	limit    time.Duration
}

func New(c Config) *API {
	a := &API{
		qs:       c.Questions,
		scorer:   c.Scorer,
		profiles: c.Profiles,
		catalog:  c.Catalog,
		progress: c.Progress,
		limit:    c.TimeLimit,
	}

	g := c.Router.Group("/api", c.Auth.Middleware())

	g.GET("/exam/questions", a.GetQuestions)
	g.POST("/exam/submit", a.SubmitExam)
	g.GET("/exam/results", a.ListResults)

	g.GET("/users/me", a.GetMe)

	g.GET("/training/courses", a.ListCoursesForMe)
	g.GET("/training/courses/:level", a.ListCourses)
	g.GET("/training/content/:courseId", a.ListContent)
	g.POST("/training/complete/:courseId", a.CompleteCourse)
	g.GET("/training/progress", a.GetProgress)

	return a
}

func (a *API) GetQuestions(c *gin.Context) {
	qs, err := a.qs.GetPublicQuestionSet(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.QuestionSet{
		Questions:        qs,
		TimeLimitSeconds: int64(a.limit / time.Second),
	})
}

func (a *API) SubmitExam(c *gin.Context) {
	var sub domain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		writeError(c, errors.MalformedSubmission("decode submission: %v", err))
		return
	}

	res, err := a.scorer.Evaluate(c.Request.Context(), score.EvaluateRequest{
		UserID:     auth.UserID(c),
		Submission: sub,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (a *API) ListResults(c *gin.Context) {
	res, err := a.scorer.ListResults(c.Request.Context(), score.ListResultsRequest{
		UserID: auth.UserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if res == nil {
		res = []domain.ExamResult{}
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) GetMe(c *gin.Context) {
	p, err := a.profiles.GetProfile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListCoursesForMe returns the training tier selected by the caller's classification.
func (a *API) ListCoursesForMe(c *gin.Context) {
	p, err := a.profiles.GetProfile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	a.listCourses(c, p.Classification)
}

func (a *API) ListCourses(c *gin.Context) {
	a.listCourses(c, domain.Classification(c.Param("level")))
}

func (a *API) listCourses(c *gin.Context, tier domain.Classification) {
	courses, err := a.catalog.ListCourses(c.Request.Context(), tier)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

func (a *API) ListContent(c *gin.Context) {
	content, err := a.catalog.ListContent(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, content)
}

func (a *API) CompleteCourse(c *gin.Context) {
	ctx := c.Request.Context()
	courseID := c.Param("courseId")

	if _, err := a.catalog.GetCourse(ctx, courseID); err != nil {
		writeError(c, err)
		return
	}

	if err := a.profiles.CompleteCourse(ctx, auth.UserID(c), courseID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "course_id": courseID})
}

func (a *API) GetProgress(c *gin.Context) {
	p, err := a.progress.GetProgress(c.Request.Context(), progress.GetProgressRequest{
		UserID: auth.UserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.JSON(e.HTTPStatusCode(), e)
}
