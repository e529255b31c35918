package apitest

import (
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/shopspring/decimal"
)

// Demo holds the accounts and exam created by SeedDemo.
type Demo struct {
	Admin     model.User
	Professor model.User
	Student   model.User
	Exam      model.Exam
}

// Demo account passwords.
const (
	DemoAdminPassword     = "admin123"
	DemoProfessorPassword = "prof123"
	DemoStudentPassword   = "student123"
)

// SeedDemo fills the backend with a professor, a student, a published
// four-question exam and the SWOT questionnaire.
func (b *Backend) SeedDemo() Demo {
	var d Demo
	d.Admin = b.AddUser("admin", DemoAdminPassword, model.RoleSuperuser, "")
	d.Professor = b.AddUser("prof_test", DemoProfessorPassword, model.RoleProfessor, "")
	d.Student = b.AddUser("STU001", DemoStudentPassword, model.RoleStudent, "Test Student")

	b.mu.Lock()
	b.users[d.Student.ID].StudentID = "STU001"
	d.Student = b.users[d.Student.ID].User
	b.mu.Unlock()

	d.Exam = b.AddExam(d.Professor.ID, model.Exam{
		Title:           "Python Programming Basics",
		Description:     "Test your knowledge of Python fundamentals",
		DurationMinutes: 60,
		IsPublished:     true,
		Questions: []model.Question{
			{
				QuestionType: model.QuestionTypeSingleChoice,
				QuestionText: "What is the output of print(2 ** 3)?",
				Marks:        decimal.NewFromInt(5),
				Choices: []model.Choice{
					{ChoiceText: "6", IsCorrect: model.Bool(false)},
					{ChoiceText: "8", IsCorrect: model.Bool(true)},
					{ChoiceText: "9", IsCorrect: model.Bool(false)},
					{ChoiceText: "5", IsCorrect: model.Bool(false)},
				},
			},
			{
				QuestionType: model.QuestionTypeMultipleChoice,
				QuestionText: "Which of the following are mutable data types in Python?",
				Marks:        decimal.NewFromInt(10),
				Choices: []model.Choice{
					{ChoiceText: "List", IsCorrect: model.Bool(true)},
					{ChoiceText: "Tuple", IsCorrect: model.Bool(false)},
					{ChoiceText: "Dictionary", IsCorrect: model.Bool(true)},
					{ChoiceText: "String", IsCorrect: model.Bool(false)},
				},
			},
			{
				QuestionType: model.QuestionTypeTrueFalse,
				QuestionText: "Python is a compiled language.",
				Marks:        decimal.NewFromInt(5),
				Choices: []model.Choice{
					{ChoiceText: "True", IsCorrect: model.Bool(false)},
					{ChoiceText: "False", IsCorrect: model.Bool(true)},
				},
			},
			{
				QuestionType: model.QuestionTypeLongAnswer,
				QuestionText: "Explain the difference between a list and a tuple in Python.",
				Marks:        decimal.NewFromInt(15),
			},
		},
	})

	swot := []struct {
		cat  model.SWOTCategory
		text string
	}{
		{model.SWOTStrength, "What are your strongest academic subjects?"},
		{model.SWOTStrength, "What skills do you excel at?"},
		{model.SWOTWeakness, "Which subjects do you find most challenging?"},
		{model.SWOTWeakness, "What areas need improvement in your studies?"},
		{model.SWOTOpportunity, "What resources are available to help you improve?"},
		{model.SWOTOpportunity, "What new learning opportunities interest you?"},
		{model.SWOTThreat, "What obstacles might prevent you from achieving your goals?"},
		{model.SWOTThreat, "What distractions do you need to manage?"},
	}
	for i, q := range swot {
		b.AddSWOTQuestion(q.cat, q.text, i%2+1)
	}
	return d
}
