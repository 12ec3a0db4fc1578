package fakes

import (
	boshsys "github.com/cloudfoundry/bosh-utils/system"
)

type CommandRunner struct {
	RunComplexCommandCall struct {
		CallCount int
		Receives  []boshsys.Command
		// Stub, when set, is called instead of using Returns.
		Stub    func(cmd boshsys.Command) (string, string, int, error)
		Returns struct {
			Stdout     string
			Stderr     string
			ExitStatus int
			Err        error
		}
	}
}

func (mock *CommandRunner) RunComplexCommand(cmd boshsys.Command) (string, string, int, error) {
	mock.RunComplexCommandCall.CallCount++
	mock.RunComplexCommandCall.Receives = append(mock.RunComplexCommandCall.Receives, cmd)
	if mock.RunComplexCommandCall.Stub != nil {
		return mock.RunComplexCommandCall.Stub(cmd)
	}
	r := mock.RunComplexCommandCall.Returns
	return r.Stdout, r.Stderr, r.ExitStatus, r.Err
}
