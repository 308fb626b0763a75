package logging

import (
	"github.com/sirupsen/logrus"
)

// Run executes a named command, logging Command.<name>.Start before it and
// Command.<name>.Complete or Command.<name>.Error after it with the data fn
// collected and its duration.
func Run(log logrus.FieldLogger, name string, fn func(*LogData) error) error {
	logData := NewLogData(log)

	log.Infof("Command.%v.Start", name)

	endTimer := logData.AddTiming("duration")
	err := fn(logData)
	endTimer()
	if err != nil {
		logData.Log().WithError(err).Errorf("Command.%v.Error", name)
		return err
	}

	logData.Log().Infof("Command.%v.Complete", name)
	return nil
}
