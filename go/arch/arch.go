package arch

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/arch/dos"
	"github.com/lunixbochs/dos86/go/models"
)

var archMap = map[string]*models.Arch{
	"x86": dos.Arch,
}

func GetArch(name, os string) (*models.Arch, *models.OS, error) {
	a, ok := archMap[name]
	if !ok {
		return nil, nil, errors.Errorf("Arch '%s' not found.", name)
	}
	o, ok := a.OS[os]
	if !ok {
		return nil, nil, errors.Errorf("OS '%s' not found for arch '%s'.", os, name)
	}
	return a, o, nil
}
