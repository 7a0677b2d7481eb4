package gstorage

import "github.com/IMINABO1/Vault/server/logger"

var logg = logger.NewLogger("gstorage")
