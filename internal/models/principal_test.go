package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkaraoglu/stajportal/internal/models"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		input   string
		want    models.EntityType
		wantErr bool
	}{
		{input: "teacher", want: models.EntityTypeTeacher},
		{input: "company", want: models.EntityTypeCompany},
		{input: "Teacher", wantErr: true},
		{input: "admin", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := models.ParseEntityType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidEntityType)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
