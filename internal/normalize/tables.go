package normalize

// Vendor status tables. Keys are the raw integer codes the controllers
// publish; values are the canonical status vocabulary.

var fanucStatusTable = map[int]string{
	0: "Disconnected",
	1: "Connected but not sending data",
	2: "Running",
	3: "Manual mode",
	4: "Interrupted",
	5: "Waiting",
}

var weleStatusTable = map[int]string{
	0: "Disconnected",
	1: "Connected but not sending data",
	2: "Running",
	3: "Manual mode",
	4: "Interrupted",
	5: "Waiting",
}

var heidenhainStatusTable = map[int]string{
	0: "Disconnected",
	1: "Connected but not sending data",
	2: "Running",
	3: "Manual mode",
	4: "Interrupted",
	5: "Waiting",
}

var defaultStatusTable = map[int]string{
	0: "Disconnected",
	1: "Connected but not sending data",
	2: "Running",
	3: "Manual mode",
	4: "Interrupted",
	5: "Faulted",
}

var quaserStatusTable = map[int]string{
	0: "NC Reset",
	1: "Emergency",
	2: "Ready",
	3: "Running",
	4: "With Synchronization",
	5: "Waiting",
	6: "Stop",
	7: "Hold",
}

// makinoPairTable resolves exact (moden, motion) combinations.
var makinoPairTable = map[[2]int]string{
	{10, 1}: "Running",
	{10, 0}: "Ready",
}

// makinoModenTable is the fallback when the (moden, motion) pair is absent.
var makinoModenTable = map[int]string{
	0:  "MDI",
	1:  "Memory",
	2:  "****",
	3:  "Edit",
	4:  "Handle",
	5:  "JOG",
	6:  "Teach in JOG",
	7:  "Teach in Handle",
	8:  "INC·feed",
	9:  "Reference",
	11: "TEST",
}

// programKeys is the lookup order for the current program on controllers
// that expose it as a plain string variable.
var programKeys = []string{
	"Program",
	"Current_Program",
	"ProgramName",
	"PathProgramName",
	"ActiveProgramName",
	"PROGN",
}
