// Command entragate runs an API protected by Entra ID access tokens and
// acquires application tokens through the client-credentials flow.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("execution failed")
		os.Exit(1)
	}
}
