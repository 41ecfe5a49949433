package domain

const (
	EventNameResultRecorded  = "exam.result_recorded"
	EventNameCourseCompleted = "training.course_completed"
)

type EventResultRecorded struct {
	Result ExamResult
}

func (EventResultRecorded) Name() string { return EventNameResultRecorded }

type EventCourseCompleted struct {
	UserID   string
	CourseID string
}

func (EventCourseCompleted) Name() string { return EventNameCourseCompleted }
