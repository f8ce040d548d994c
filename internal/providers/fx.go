package providers

import (
	"github.com/smallbiznis/coursemart/internal/providers/pdf"
	"github.com/smallbiznis/coursemart/internal/providers/videohost"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	videohost.Module,
	pdf.Module,
)
