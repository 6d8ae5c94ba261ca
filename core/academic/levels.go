package academic

// ClassLevels are the cohorts of the school, lowest first.
var ClassLevels = []string{
	"Creche",
	"Nursery 1",
	"Nursery 2",
	"KG 1",
	"KG 2",
	"Basic 1",
	"Basic 2",
	"Basic 3",
	"Basic 4",
	"Basic 5",
	"Basic 6",
	"Basic 7",
	"Basic 8",
	"Basic 9",
	"JHS 1",
	"JHS 2",
	"JHS 3",
}

var classLevelSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ClassLevels))
	for _, lvl := range ClassLevels {
		set[lvl] = struct{}{}
	}
	return set
}()

func IsClassLevel(level string) bool {
	_, ok := classLevelSet[level]
	return ok
}
