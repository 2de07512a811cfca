//go:build unix

package dnsbench

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_firstNameServer(t *testing.T) {
	tests := []struct {
		name       string
		resolvConf string
		want       string
	}{
		{
			name:       "first nameserver",
			resolvConf: "# generated\nsearch example.org\nnameserver 10.0.0.2\nnameserver 10.0.0.3\n",
			want:       "10.0.0.2",
		},
		{
			name:       "commented out nameserver",
			resolvConf: ";nameserver 10.0.0.1\n  nameserver   fd00::53  \n",
			want:       "fd00::53",
		},
		{
			name:       "no nameserver",
			resolvConf: "options ndots:5\n",
			want:       "127.0.0.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstNameServer(bufio.NewScanner(strings.NewReader(tt.resolvConf))))
		})
	}
}
